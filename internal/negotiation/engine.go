package negotiation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
)

// Result is the outcome of a single negotiation operation.
type Result struct {
	State         model.NegotiationState
	Decision      model.Decision
	CounterOffer  *float64
	TransferToRep bool
}

// Completed reports whether the operation moved the negotiation into a
// terminal status.
func (r Result) Completed() bool {
	return r.State.Status.Terminal()
}

func (r Result) Response() model.NegotiationResponse {
	return model.NegotiationResponse{
		NegotiationID: r.State.NegotiationID,
		CallID:        r.State.CallID,
		Status:        r.State.Status,
		Round:         r.State.Round,
		Decision:      r.Decision,
		CounterOffer:  r.CounterOffer,
		FinalRate:     r.State.FinalRate,
		Policy:        r.State.Policy,
		TransferToRep: r.TransferToRep,
	}
}

// Engine runs negotiations against the shared state store. Every operation is
// a single critical section on the store.
type Engine struct {
	store *state.Store
}

func New(st *state.Store) *Engine {
	return &Engine{store: st}
}

// Start opens a negotiation for callID and decides on the carrier's first
// offer. The opening offer is only declined outright under a single-round
// policy.
func (e *Engine) Start(callID string, load model.Load, mcNumber string, offer float64) (Result, error) {
	if err := validateStart(callID, offer); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.Do(func(tx *state.Tx) error {
		if _, ok := tx.Negotiation(callID); ok {
			return fmt.Errorf("negotiation for call %s already exists: %w", callID, model.ErrConflict)
		}
		res = start(tx, callID, load, DerivePolicy(load.LoadboardRate), mcNumber, offer)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logStarted(res)
	logCompleted(res)
	return res, nil
}

// Counter records a new carrier offer and returns the next decision.
func (e *Engine) Counter(callID string, offer float64) (Result, error) {
	if err := validateAmount("carrier_offer", offer); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.Do(func(tx *state.Tx) error {
		n, err := inProgress(tx, callID)
		if err != nil {
			return err
		}
		res = counter(tx, n, offer)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logCompleted(res)
	return res, nil
}

// Accept closes the negotiation at finalRate. The rate is recorded as given
// so an operator can settle outside the policy band.
func (e *Engine) Accept(callID string, finalRate float64) (Result, error) {
	if err := validateAmount("final_rate", finalRate); err != nil {
		return Result{}, err
	}
	var res Result
	err := e.store.Do(func(tx *state.Tx) error {
		n, err := inProgress(tx, callID)
		if err != nil {
			return err
		}
		res = accept(tx, n, finalRate)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logCompleted(res)
	return res, nil
}

// Decline closes the negotiation without agreement.
func (e *Engine) Decline(callID, reason string) (Result, error) {
	var res Result
	err := e.store.Do(func(tx *state.Tx) error {
		n, err := inProgress(tx, callID)
		if err != nil {
			return err
		}
		n.DeclineReason = strings.TrimSpace(reason)
		complete(tx, n, model.NegotiationDeclined)
		res = Result{State: n.Clone(), Decision: model.DecisionDecline}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logCompleted(res)
	return res, nil
}

// Step is the conversational entry point: it starts the negotiation when
// none exists, counters otherwise, and closes the deal at the carrier's
// offer as soon as that offer is acceptable.
func (e *Engine) Step(callID string, load model.Load, mcNumber string, offer float64) (Result, error) {
	if err := validateStart(callID, offer); err != nil {
		return Result{}, err
	}
	var (
		res     Result
		started bool
	)
	err := e.store.Do(func(tx *state.Tx) error {
		n, ok := tx.Negotiation(callID)
		if !ok {
			res = start(tx, callID, load, DerivePolicy(load.LoadboardRate), mcNumber, offer)
			started = true
		} else {
			if n.Status.Terminal() {
				return terminalConflict(n)
			}
			res = counter(tx, n, offer)
		}
		if res.Decision == model.DecisionAccept {
			n, _ := tx.Negotiation(callID)
			res = accept(tx, n, offer)
			res.TransferToRep = true
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if started {
		logStarted(res)
	}
	logCompleted(res)
	return res, nil
}

func (e *Engine) Get(callID string) (model.NegotiationState, error) {
	n, ok := e.store.Negotiation(callID)
	if !ok {
		return model.NegotiationState{}, fmt.Errorf("negotiation %s: %w", callID, model.ErrNotFound)
	}
	return n, nil
}

func validateStart(callID string, offer float64) error {
	if strings.TrimSpace(callID) == "" {
		return fmt.Errorf("call_id is required: %w", model.ErrValidation)
	}
	return validateAmount("carrier_offer", offer)
}

// start creates the negotiation at round 1. When the opening offer already
// exhausts the policy it is created in the declined status.
func start(tx *state.Tx, callID string, load model.Load, policy model.Policy, mcNumber string, offer float64) Result {
	tx.GetOrCreateCall(callID)

	decision, counterValue := Decide(policy, offer, 1)
	now := tx.Now()

	n := &model.NegotiationState{
		NegotiationID:     callID,
		CallID:            callID,
		Load:              load,
		MCNumber:          strings.TrimSpace(mcNumber),
		Status:            model.NegotiationInProgress,
		Round:             1,
		Policy:            policy,
		FirstCarrierOffer: offer,
		LastCarrierOffer:  offer,
		LastCounterOffer:  counterValue,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	tx.PutNegotiation(n)
	tx.Incr(state.NegotiationsStarted, 1)

	if decision == model.DecisionDecline {
		complete(tx, n, model.NegotiationDeclined)
	}
	return Result{State: n.Clone(), Decision: decision, CounterOffer: counterValue}
}

func counter(tx *state.Tx, n *model.NegotiationState, offer float64) Result {
	n.Round++
	n.LastCarrierOffer = offer

	decision, counterValue := Decide(n.Policy, offer, n.Round)
	n.LastCounterOffer = counterValue
	n.UpdatedAt = tx.Now()

	if decision == model.DecisionDecline {
		complete(tx, n, model.NegotiationDeclined)
	}
	return Result{State: n.Clone(), Decision: decision, CounterOffer: counterValue}
}

func accept(tx *state.Tx, n *model.NegotiationState, finalRate float64) Result {
	rate := finalRate
	n.FinalRate = &rate
	complete(tx, n, model.NegotiationAccepted)
	return Result{State: n.Clone(), Decision: model.DecisionAccept}
}

// complete moves n into a terminal status and folds it into the metrics.
func complete(tx *state.Tx, n *model.NegotiationState, status model.NegotiationStatus) {
	n.Status = status
	n.UpdatedAt = tx.Now()
	if status == model.NegotiationAccepted {
		tx.Incr(state.NegotiationsAccepted, 1)
	} else {
		tx.Incr(state.NegotiationsDeclined, 1)
	}
	tx.Incr(state.CompletedRoundsTotal, int64(n.Round))
	tx.Incr(state.CompletedCount, 1)
}

func inProgress(tx *state.Tx, callID string) (*model.NegotiationState, error) {
	n, ok := tx.Negotiation(callID)
	if !ok {
		return nil, fmt.Errorf("negotiation %s: %w", callID, model.ErrNotFound)
	}
	if n.Status.Terminal() {
		return nil, terminalConflict(n)
	}
	return n, nil
}

func terminalConflict(n *model.NegotiationState) error {
	return fmt.Errorf("negotiation already %s: %w", n.Status, model.ErrConflict)
}

func logStarted(res Result) {
	slog.Info("negotiation_started",
		"call_id", res.State.CallID,
		"load_id", res.State.Load.LoadID,
		"target", res.State.Policy.Target,
		"carrier_offer", res.State.FirstCarrierOffer,
	)
}

func logCompleted(res Result) {
	if !res.Completed() {
		return
	}
	slog.Info("negotiation_completed",
		"call_id", res.State.CallID,
		"status", res.State.Status,
		"rounds", res.State.Round,
		"final_rate", res.State.FinalRate,
	)
}
