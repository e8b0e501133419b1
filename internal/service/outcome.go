package service

import (
	"strings"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// OutcomeSignals are the inputs to outcome classification. Negotiation is
// empty when the call never reached a negotiation.
type OutcomeSignals struct {
	Platform    string
	Verified    *bool
	Negotiation model.NegotiationStatus
}

type outcomeRule struct {
	outcome model.Outcome
	matches func(OutcomeSignals) bool
}

// outcomePrecedence is evaluated top to bottom; the first match wins. A
// terminal negotiation outranks what the platform claims.
var outcomePrecedence = []outcomeRule{
	{model.OutcomeFailedVerification, func(s OutcomeSignals) bool {
		return (s.Verified != nil && !*s.Verified) || s.Platform == model.PlatformOutcomeFailedVerification
	}},
	{model.OutcomeNoMatchingLoad, func(s OutcomeSignals) bool {
		return s.Platform == model.PlatformOutcomeNoMatch
	}},
	{model.OutcomeCallDropped, func(s OutcomeSignals) bool {
		return s.Platform == model.PlatformOutcomeDropped
	}},
	{model.OutcomeAcceptedTransferred, func(s OutcomeSignals) bool {
		return s.Negotiation == model.NegotiationAccepted
	}},
	{model.OutcomeDeclined, func(s OutcomeSignals) bool {
		return s.Negotiation == model.NegotiationDeclined
	}},
	{model.OutcomeAcceptedTransferred, func(s OutcomeSignals) bool {
		return s.Platform == model.PlatformOutcomeAccepted
	}},
	{model.OutcomeDeclined, func(s OutcomeSignals) bool {
		return s.Platform == model.PlatformOutcomeDeclined
	}},
}

// Classify maps call signals to the dashboard outcome.
func Classify(s OutcomeSignals) model.Outcome {
	for _, rule := range outcomePrecedence {
		if rule.matches(s) {
			return rule.outcome
		}
	}
	return model.OutcomeOther
}

// buildRecord derives the dashboard record for a call that is about to end.
// It only reads call and neg.
func buildRecord(call model.CallState, neg *model.NegotiationState, ev model.CallEndedEvent, endedAt time.Time) model.CallRecord {
	summary := ev.Summary
	if summary == nil {
		summary = map[string]any{}
	}

	verified := summaryBool(summary["verified"])
	if verified == nil {
		// fall back to the eligibility recorded by carrier verification
		verified = summaryBool(call.Summary["carrier_eligible"])
	}

	startedAt := call.StartedAt
	rec := model.CallRecord{
		CallID:      call.CallID,
		StartedAt:   &startedAt,
		EndedAt:     endedAt,
		Verified:    verified,
		Sentiment:   summaryString(summary, "sentiment"),
		SummaryText: summaryString(summary, "summary", "summary_text"),
		RawOutcome:  ev.Outcome,
		RawSummary:  summary,
	}

	signals := OutcomeSignals{Platform: ev.Outcome, Verified: verified}
	if neg != nil {
		signals.Negotiation = neg.Status

		loadID := neg.Load.LoadID
		rate := neg.Load.LoadboardRate
		rounds := neg.Round
		first := neg.FirstCarrierOffer
		last := neg.LastCarrierOffer
		rec.LoadID = &loadID
		rec.LoadboardRate = &rate
		rec.Rounds = &rounds
		rec.CarrierFirstOffer = &first
		rec.CarrierLastOffer = &last
		if neg.FinalRate != nil {
			v := *neg.FinalRate
			rec.FinalOffer = &v
		}
		rec.Agreed = neg.Status == model.NegotiationAccepted
		rec.TransferToRep = rec.Agreed
	}
	rec.Outcome = Classify(signals)

	if rec.Outcome == model.OutcomeAcceptedTransferred {
		rec.Agreed = true
		rec.TransferToRep = true
		if rec.FinalOffer == nil && neg != nil {
			v := neg.LastCarrierOffer
			if neg.LastCounterOffer != nil {
				v = *neg.LastCounterOffer
			}
			rec.FinalOffer = &v
		}
	}
	return rec
}

// summaryBool reads a loosely typed flag from a platform payload. Values that
// are not recognisably true or false yield nil.
func summaryBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case float64:
		b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			b = true
		case "false", "no", "n", "0":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func summaryString(summary map[string]any, keys ...string) *string {
	for _, k := range keys {
		if s, ok := summary[k].(string); ok && strings.TrimSpace(s) != "" {
			return &s
		}
	}
	return nil
}
