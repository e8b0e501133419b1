// Package negotiation implements the multi-round rate negotiation: a pure
// pricing policy plus a stateful engine on top of the shared state store.
package negotiation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// MaxRounds is the number of rounds after which an unresolved negotiation is
// declined.
const MaxRounds = 3

var (
	minFactor = decimal.RequireFromString("0.90")
	maxFactor = decimal.RequireFromString("1.10")

	// Share of the distance from target to the carrier's offer conceded per
	// round. Round 3 and later use the last entry.
	concession = []decimal.Decimal{
		decimal.RequireFromString("0.25"),
		decimal.RequireFromString("0.50"),
		decimal.RequireFromString("0.75"),
	}
)

// DerivePolicy builds the band for a load listed at rate.
func DerivePolicy(rate float64) model.Policy {
	target := decimal.NewFromFloat(rate)
	return model.Policy{
		Target:    rate,
		Min:       target.Mul(minFactor).Round(2).InexactFloat64(),
		Max:       target.Mul(maxFactor).Round(2).InexactFloat64(),
		MaxRounds: MaxRounds,
	}
}

// Decide returns the broker's response to offer in the given round. The
// counter value is only set for DecisionCounter.
func Decide(p model.Policy, offer float64, round int) (model.Decision, *float64) {
	if p.InBand(offer) {
		return model.DecisionAccept, nil
	}
	if round >= p.MaxRounds {
		return model.DecisionDecline, nil
	}
	c := counterOffer(p, offer, round)
	return model.DecisionCounter, &c
}

// counterOffer blends the target toward offer by the round's concession,
// clamps to the band and rounds to cents.
func counterOffer(p model.Policy, offer float64, round int) float64 {
	idx := round - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(concession) {
		idx = len(concession) - 1
	}

	target := decimal.NewFromFloat(p.Target)
	lo := decimal.NewFromFloat(p.Min)
	hi := decimal.NewFromFloat(p.Max)

	c := target.Add(concession[idx].Mul(decimal.NewFromFloat(offer).Sub(target)))
	if c.LessThan(lo) {
		c = lo
	}
	if c.GreaterThan(hi) {
		c = hi
	}
	return c.Round(2).InexactFloat64()
}

// validateAmount rejects rates and offers that cannot be priced.
func validateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number: %w", field, model.ErrValidation)
	}
	if v < 0 {
		return fmt.Errorf("%s must not be negative: %w", field, model.ErrValidation)
	}
	return nil
}
