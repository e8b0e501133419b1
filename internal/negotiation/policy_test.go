package negotiation

import (
	"errors"
	"math"
	"testing"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

func TestDerivePolicy(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		min, max float64
	}{
		{name: "round number", rate: 1000, min: 900, max: 1100},
		{name: "cents", rate: 2345.67, min: 2111.1, max: 2580.24},
		{name: "half cent rounds away from zero", rate: 0.05, min: 0.05, max: 0.06},
		{name: "zero", rate: 0, min: 0, max: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DerivePolicy(tt.rate)
			if p.Target != tt.rate || p.Min != tt.min || p.Max != tt.max {
				t.Errorf("DerivePolicy(%v) = %+v, want min=%v max=%v", tt.rate, p, tt.min, tt.max)
			}
			if p.MaxRounds != MaxRounds {
				t.Errorf("MaxRounds = %d", p.MaxRounds)
			}
			if !(p.Min <= p.Target && p.Target <= p.Max) {
				t.Errorf("band does not contain target: %+v", p)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	p := DerivePolicy(1000)
	tests := []struct {
		name        string
		offer       float64
		round       int
		want        model.Decision
		wantCounter float64
	}{
		{name: "in band round 1", offer: 1050, round: 1, want: model.DecisionAccept},
		{name: "band edge min", offer: 900, round: 2, want: model.DecisionAccept},
		{name: "band edge max", offer: 1100, round: 5, want: model.DecisionAccept},
		{name: "in band after max rounds", offer: 950, round: 3, want: model.DecisionAccept},
		{name: "round 1 blends 25 percent", offer: 1200, round: 1, want: model.DecisionCounter, wantCounter: 1050},
		{name: "round 2 blends 50 percent", offer: 1150, round: 2, want: model.DecisionCounter, wantCounter: 1075},
		{name: "low offer clamps to min", offer: 0, round: 1, want: model.DecisionCounter, wantCounter: 900},
		{name: "huge offer clamps to max", offer: 10000, round: 2, want: model.DecisionCounter, wantCounter: 1100},
		{name: "max round declines", offer: 5000, round: 3, want: model.DecisionDecline},
		{name: "beyond max round declines", offer: 10, round: 4, want: model.DecisionDecline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, c := Decide(p, tt.offer, tt.round)
			if got != tt.want {
				t.Fatalf("Decide(%v, %d) = %s, want %s", tt.offer, tt.round, got, tt.want)
			}
			if tt.want != model.DecisionCounter {
				if c != nil {
					t.Errorf("expected no counter, got %v", *c)
				}
				return
			}
			if c == nil || *c != tt.wantCounter {
				t.Errorf("counter = %v, want %v", c, tt.wantCounter)
			}
		})
	}
}

func TestCounterStaysInBand(t *testing.T) {
	for _, rate := range []float64{1, 999.99, 1000, 2750.5} {
		p := DerivePolicy(rate)
		for _, offer := range []float64{0, rate * 0.5, rate * 1.5, rate * 10} {
			for round := 1; round <= 4; round++ {
				c := counterOffer(p, offer, round)
				if c < p.Min || c > p.Max {
					t.Errorf("rate=%v offer=%v round=%d: counter %v outside [%v, %v]", rate, offer, round, c, p.Min, p.Max)
				}
			}
		}
	}
}

func TestCounterConcedesMonotonically(t *testing.T) {
	p := DerivePolicy(1000)
	for _, offer := range []float64{0, 500, 850, 1150, 1200, 1500, 10000} {
		prev := math.Inf(1)
		for round := 1; round <= 3; round++ {
			gap := math.Abs(counterOffer(p, offer, round) - offer)
			if gap > prev {
				t.Errorf("offer=%v: round %d gap %v exceeds previous %v", offer, round, gap, prev)
			}
			prev = gap
		}
	}
	// 1200 in round 3 would be 1150, but that is clamped to the band.
	if got := counterOffer(p, 1200, 3); got != 1100 {
		t.Errorf("round 3 counter = %v, want 1100", got)
	}
	if got := counterOffer(p, 1120, 3); got != 1090 {
		t.Errorf("round 3 counter = %v, want 1090", got)
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		v       float64
		wantErr bool
	}{
		{name: "zero", v: 0},
		{name: "positive", v: 1200.5},
		{name: "negative", v: -1, wantErr: true},
		{name: "nan", v: math.NaN(), wantErr: true},
		{name: "inf", v: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAmount("carrier_offer", tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}
