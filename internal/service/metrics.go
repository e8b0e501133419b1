package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const (
	DefaultCallsPageSize = 50
	MaxCallsPageSize     = 500

	unknownSentiment = "Unknown"
)

// Overview reports the in-process counters from a single locked snapshot.
func (s *Service) Overview() model.MetricsOverview {
	m := s.state.Metrics()
	return model.MetricsOverview{
		CallsStarted:           m.CallsStarted,
		CallsEnded:             m.CallsEnded,
		NegotiationsStarted:    m.NegotiationsStarted,
		NegotiationsAccepted:   m.NegotiationsAccepted,
		NegotiationsDeclined:   m.NegotiationsDeclined,
		CompletedRoundsTotal:   m.CompletedRoundsTotal,
		CompletedCount:         m.CompletedCount,
		AverageRoundsCompleted: decimal.NewFromFloat(m.AverageRounds()).Round(2).InexactFloat64(),
	}
}

// DashboardOverview aggregates every persisted call record. Verified rate
// only counts records where verification is known; the delta average only
// counts records with both a final and a listed rate.
func (s *Service) DashboardOverview(ctx context.Context) (model.DashboardOverview, error) {
	recs, err := s.records.All(ctx)
	if err != nil {
		return model.DashboardOverview{}, err
	}

	var (
		accepted, transferred      int
		verifiedKnown, verifiedYes int
		withRounds, roundsSum      int
		withDelta                  int
		deltaSum                   = decimal.Zero
	)
	for _, r := range recs {
		if r.Outcome == model.OutcomeAcceptedTransferred {
			accepted++
		}
		if r.TransferToRep {
			transferred++
		}
		if r.Verified != nil {
			verifiedKnown++
			if *r.Verified {
				verifiedYes++
			}
		}
		if r.Rounds != nil {
			withRounds++
			roundsSum += *r.Rounds
		}
		if r.FinalOffer != nil && r.LoadboardRate != nil {
			withDelta++
			deltaSum = deltaSum.Add(decimal.NewFromFloat(*r.FinalOffer).Sub(decimal.NewFromFloat(*r.LoadboardRate)))
		}
	}

	total := len(recs)
	return model.DashboardOverview{
		TotalCalls:            total,
		AcceptanceRate:        ratio(decimal.NewFromInt(int64(accepted)), total, 4),
		VerifiedRate:          ratio(decimal.NewFromInt(int64(verifiedYes)), verifiedKnown, 4),
		TransferRate:          ratio(decimal.NewFromInt(int64(transferred)), total, 4),
		AvgRounds:             ratio(decimal.NewFromInt(int64(roundsSum)), withRounds, 2),
		AvgFinalVsListedDelta: ratio(deltaSum, withDelta, 2),
	}, nil
}

// ratio divides num by n, rounding to places; 0 when n is 0.
func ratio(num decimal.Decimal, n, places int) float64 {
	if n == 0 {
		return 0
	}
	return num.DivRound(decimal.NewFromInt(int64(n)), int32(places)).InexactFloat64()
}

func (s *Service) OutcomeDistribution(ctx context.Context) (map[string]int, error) {
	recs, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, r := range recs {
		out[string(r.Outcome)]++
	}
	return out, nil
}

// SentimentDistribution counts records by the platform's sentiment label,
// with missing labels under "Unknown".
func (s *Service) SentimentDistribution(ctx context.Context) (map[string]int, error) {
	recs, err := s.records.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, r := range recs {
		label := unknownSentiment
		if r.Sentiment != nil {
			label = *r.Sentiment
		}
		out[label]++
	}
	return out, nil
}

// ListCalls pages through call records, most recently ended first.
func (s *Service) ListCalls(ctx context.Context, limit, offset int) (model.CallRecordList, error) {
	if limit < 0 || offset < 0 {
		return model.CallRecordList{}, fmt.Errorf("limit and offset must not be negative: %w", model.ErrValidation)
	}
	if limit == 0 {
		limit = DefaultCallsPageSize
	}
	if limit > MaxCallsPageSize {
		limit = MaxCallsPageSize
	}

	recs, total, err := s.records.List(ctx, limit, offset)
	if err != nil {
		return model.CallRecordList{}, err
	}
	return model.CallRecordList{
		Calls:  recs,
		Count:  len(recs),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetCall returns the persisted record for callID, with the live call state
// attached when this process still holds it.
func (s *Service) GetCall(ctx context.Context, callID string) (model.CallDetail, error) {
	rec, err := s.records.Get(ctx, callID)
	if err != nil {
		return model.CallDetail{}, err
	}
	detail := model.CallDetail{
		CallID:     rec.CallID,
		Dashboard:  rec,
		RawSummary: rec.RawSummary,
	}
	if call, ok := s.state.Call(callID); ok {
		detail.CallState = &call
	}
	return detail, nil
}
