package service

import (
	"testing"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/testutil"
)

func TestClassify(t *testing.T) {
	yes, no := testutil.Ptr(true), testutil.Ptr(false)

	tests := []struct {
		name    string
		signals OutcomeSignals
		want    model.Outcome
	}{
		{"verification flag false wins over everything", OutcomeSignals{Platform: "accepted", Verified: no, Negotiation: model.NegotiationAccepted}, model.OutcomeFailedVerification},
		{"platform failed_verification", OutcomeSignals{Platform: "failed_verification", Verified: yes}, model.OutcomeFailedVerification},
		{"no match beats negotiation", OutcomeSignals{Platform: "no_match", Negotiation: model.NegotiationAccepted}, model.OutcomeNoMatchingLoad},
		{"dropped beats negotiation", OutcomeSignals{Platform: "dropped", Negotiation: model.NegotiationDeclined}, model.OutcomeCallDropped},
		{"negotiation accepted beats platform declined", OutcomeSignals{Platform: "declined", Negotiation: model.NegotiationAccepted}, model.OutcomeAcceptedTransferred},
		{"negotiation declined beats platform accepted", OutcomeSignals{Platform: "accepted", Negotiation: model.NegotiationDeclined}, model.OutcomeDeclined},
		{"in-progress negotiation defers to platform", OutcomeSignals{Platform: "accepted", Negotiation: model.NegotiationInProgress}, model.OutcomeAcceptedTransferred},
		{"platform declined", OutcomeSignals{Platform: "declined"}, model.OutcomeDeclined},
		{"other", OutcomeSignals{Platform: "other", Verified: yes}, model.OutcomeOther},
		{"nothing known", OutcomeSignals{}, model.OutcomeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.want, Classify(tt.signals))
		})
	}
}

func TestBuildRecordFinalOfferBackfill(t *testing.T) {
	ended := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	call := model.CallState{CallID: "c1", StartedAt: ended.Add(-time.Minute), Summary: map[string]any{}}
	load := model.Load{LoadID: "L-1", LoadboardRate: 1000}

	counter := 1050.0
	tests := []struct {
		name      string
		neg       *model.NegotiationState
		outcome   string
		wantFinal *float64
		wantAgree bool
	}{
		{
			name:      "platform accepted, backfill from last counter",
			neg:       &model.NegotiationState{Load: load, Status: model.NegotiationInProgress, Round: 2, FirstCarrierOffer: 1300, LastCarrierOffer: 1200, LastCounterOffer: &counter},
			outcome:   "accepted",
			wantFinal: testutil.Ptr(1050.0),
			wantAgree: true,
		},
		{
			name:      "platform accepted, backfill from last carrier offer",
			neg:       &model.NegotiationState{Load: load, Status: model.NegotiationInProgress, Round: 1, FirstCarrierOffer: 1200, LastCarrierOffer: 1200},
			outcome:   "accepted",
			wantFinal: testutil.Ptr(1200.0),
			wantAgree: true,
		},
		{
			name:      "negotiation accepted keeps its final rate",
			neg:       &model.NegotiationState{Load: load, Status: model.NegotiationAccepted, Round: 3, FirstCarrierOffer: 1500, LastCarrierOffer: 980, FinalRate: testutil.Ptr(980.0)},
			outcome:   "other",
			wantFinal: testutil.Ptr(980.0),
			wantAgree: true,
		},
		{
			name:    "declined negotiation has no final offer",
			neg:     &model.NegotiationState{Load: load, Status: model.NegotiationDeclined, Round: 3, FirstCarrierOffer: 2000, LastCarrierOffer: 1900, LastCounterOffer: &counter},
			outcome: "accepted",
		},
		{
			name:      "platform accepted without negotiation",
			outcome:   "accepted",
			wantAgree: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := buildRecord(call, tt.neg, model.CallEndedEvent{CallID: "c1", Outcome: tt.outcome}, ended)

			testutil.AssertEqual(t, tt.wantAgree, rec.Agreed)
			testutil.AssertEqual(t, tt.wantAgree, rec.TransferToRep)
			switch {
			case tt.wantFinal == nil && rec.FinalOffer != nil:
				t.Errorf("final_offer = %v, want null", *rec.FinalOffer)
			case tt.wantFinal != nil && (rec.FinalOffer == nil || *rec.FinalOffer != *tt.wantFinal):
				t.Errorf("final_offer = %v, want %v", rec.FinalOffer, *tt.wantFinal)
			}
			if tt.neg != nil {
				testutil.AssertEqual(t, tt.neg.FirstCarrierOffer, *rec.CarrierFirstOffer)
				testutil.AssertEqual(t, tt.neg.Round, *rec.Rounds)
				testutil.AssertEqual(t, "L-1", *rec.LoadID)
			}
			testutil.AssertTrue(t, rec.EndedAt.Equal(ended), "ended_at = %v", rec.EndedAt)
		})
	}
}

func TestBuildRecordVerification(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		annotation any
		want       *bool
	}{
		{"payload bool", true, nil, testutil.Ptr(true)},
		{"payload string", "false", true, testutil.Ptr(false)},
		{"payload number", float64(1), nil, testutil.Ptr(true)},
		{"unrecognised payload falls back to carrier check", "maybe", false, testutil.Ptr(false)},
		{"nothing known", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := model.CallState{CallID: "c", Summary: map[string]any{}}
			if tt.annotation != nil {
				call.Summary["carrier_eligible"] = tt.annotation
			}
			summary := map[string]any{}
			if tt.payload != nil {
				summary["verified"] = tt.payload
			}
			rec := buildRecord(call, nil, model.CallEndedEvent{CallID: "c", Outcome: "other", Summary: summary}, time.Now())

			if (rec.Verified == nil) != (tt.want == nil) || (tt.want != nil && *rec.Verified != *tt.want) {
				t.Errorf("verified = %v, want %v", rec.Verified, tt.want)
			}
		})
	}
}
