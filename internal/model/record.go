package model

import "time"

// Outcome is the business outcome of a call as shown on the dashboard.
type Outcome string

const (
	OutcomeAcceptedTransferred Outcome = "ACCEPTED_TRANSFERRED"
	OutcomeDeclined            Outcome = "DECLINED"
	OutcomeFailedVerification  Outcome = "FAILED_VERIFICATION"
	OutcomeNoMatchingLoad      Outcome = "NO_MATCHING_LOAD"
	OutcomeCallDropped         Outcome = "CALL_DROPPED"
	OutcomeOther               Outcome = "OTHER"
)

// CallRecord is the denormalized, persisted summary of one ended call.
type CallRecord struct {
	CallID            string         `json:"call_id" bson:"_id" firestore:"call_id"`
	StartedAt         *time.Time     `json:"started_at,omitempty" bson:"started_at,omitempty" firestore:"started_at"`
	EndedAt           time.Time      `json:"ended_at" bson:"ended_at" firestore:"ended_at"`
	Verified          *bool          `json:"verified" bson:"verified" firestore:"verified"`
	LoadID            *string        `json:"load_id" bson:"load_id" firestore:"load_id"`
	LoadboardRate     *float64       `json:"loadboard_rate" bson:"loadboard_rate" firestore:"loadboard_rate"`
	Rounds            *int           `json:"rounds" bson:"rounds" firestore:"rounds"`
	CarrierFirstOffer *float64       `json:"carrier_first_offer" bson:"carrier_first_offer" firestore:"carrier_first_offer"`
	CarrierLastOffer  *float64       `json:"carrier_last_offer" bson:"carrier_last_offer" firestore:"carrier_last_offer"`
	FinalOffer        *float64       `json:"final_offer" bson:"final_offer" firestore:"final_offer"`
	Agreed            bool           `json:"agreed" bson:"agreed" firestore:"agreed"`
	TransferToRep     bool           `json:"transfer_to_rep" bson:"transfer_to_rep" firestore:"transfer_to_rep"`
	Outcome           Outcome        `json:"outcome" bson:"outcome" firestore:"outcome"`
	Sentiment         *string        `json:"sentiment" bson:"sentiment" firestore:"sentiment"`
	SummaryText       *string        `json:"summary_text,omitempty" bson:"summary_text,omitempty" firestore:"summary_text"`
	RawOutcome        string         `json:"raw_outcome,omitempty" bson:"raw_outcome,omitempty" firestore:"raw_outcome"`
	RawSummary        map[string]any `json:"raw_summary,omitempty" bson:"raw_summary,omitempty" firestore:"raw_summary"`
}

type CallRecordList struct {
	Calls  []CallRecord `json:"calls"`
	Count  int          `json:"count"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// MetricsOverview is a consistent snapshot of the in-process counters.
type MetricsOverview struct {
	CallsStarted           int64   `json:"calls_started"`
	CallsEnded             int64   `json:"calls_ended"`
	NegotiationsStarted    int64   `json:"negotiations_started"`
	NegotiationsAccepted   int64   `json:"negotiations_accepted"`
	NegotiationsDeclined   int64   `json:"negotiations_declined"`
	CompletedRoundsTotal   int64   `json:"completed_rounds_total"`
	CompletedCount         int64   `json:"completed_count"`
	AverageRoundsCompleted float64 `json:"average_rounds_completed"`
}

// DashboardOverview aggregates over every persisted call record.
type DashboardOverview struct {
	TotalCalls            int     `json:"total_calls"`
	AcceptanceRate        float64 `json:"acceptance_rate"`
	VerifiedRate          float64 `json:"verified_rate"`
	TransferRate          float64 `json:"transfer_rate"`
	AvgRounds             float64 `json:"avg_rounds"`
	AvgFinalVsListedDelta float64 `json:"avg_final_vs_listed_delta"`
}
