package testutil

import (
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// CallRecordFixture builds call records for store and metrics tests.
type CallRecordFixture struct {
	rec model.CallRecord
}

// NewCallRecordFixture returns an accepted, verified three-round call.
func NewCallRecordFixture(callID string) CallRecordFixture {
	ended := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	started := ended.Add(-4 * time.Minute)
	return CallRecordFixture{rec: model.CallRecord{
		CallID:            callID,
		StartedAt:         &started,
		EndedAt:           ended,
		Verified:          Ptr(true),
		LoadID:            Ptr("L-1001"),
		LoadboardRate:     Ptr(1000.0),
		Rounds:            Ptr(3),
		CarrierFirstOffer: Ptr(1200.0),
		CarrierLastOffer:  Ptr(950.0),
		FinalOffer:        Ptr(950.0),
		Agreed:            true,
		TransferToRep:     true,
		Outcome:           model.OutcomeAcceptedTransferred,
		Sentiment:         Ptr("Positive"),
		RawOutcome:        model.PlatformOutcomeAccepted,
		RawSummary:        map[string]any{"sentiment": "Positive"},
	}}
}

func (f CallRecordFixture) EndedAt(t time.Time) CallRecordFixture {
	f.rec.EndedAt = t
	return f
}

func (f CallRecordFixture) Outcome(o model.Outcome) CallRecordFixture {
	f.rec.Outcome = o
	accepted := o == model.OutcomeAcceptedTransferred
	f.rec.Agreed = accepted
	f.rec.TransferToRep = accepted
	if !accepted {
		f.rec.FinalOffer = nil
	}
	return f
}

func (f CallRecordFixture) Verified(v *bool) CallRecordFixture {
	f.rec.Verified = v
	return f
}

func (f CallRecordFixture) Sentiment(s *string) CallRecordFixture {
	f.rec.Sentiment = s
	return f
}

func (f CallRecordFixture) Rounds(n *int) CallRecordFixture {
	f.rec.Rounds = n
	return f
}

func (f CallRecordFixture) Offers(listed, final *float64) CallRecordFixture {
	f.rec.LoadboardRate = listed
	f.rec.FinalOffer = final
	return f
}

func (f CallRecordFixture) Build() model.CallRecord {
	return f.rec
}
