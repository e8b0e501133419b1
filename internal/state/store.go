// Package state holds the process-wide call and negotiation state together
// with the aggregate counters derived from it.
//
// Every read and write goes through a single mutex, so a negotiation
// transition and the counters it moves become visible together. Nothing
// executed under the lock performs I/O.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// Counter names one of the aggregate metrics.
type Counter int

const (
	CallsStarted Counter = iota
	CallsEnded
	NegotiationsStarted
	NegotiationsAccepted
	NegotiationsDeclined
	CompletedRoundsTotal
	CompletedCount
)

func (c Counter) String() string {
	switch c {
	case CallsStarted:
		return "calls_started"
	case CallsEnded:
		return "calls_ended"
	case NegotiationsStarted:
		return "negotiations_started"
	case NegotiationsAccepted:
		return "negotiations_accepted"
	case NegotiationsDeclined:
		return "negotiations_declined"
	case CompletedRoundsTotal:
		return "completed_rounds_total"
	case CompletedCount:
		return "completed_count"
	default:
		return fmt.Sprintf("counter(%d)", int(c))
	}
}

// Metrics is a snapshot of the aggregate counters.
type Metrics struct {
	CallsStarted         int64
	CallsEnded           int64
	NegotiationsStarted  int64
	NegotiationsAccepted int64
	NegotiationsDeclined int64
	CompletedRoundsTotal int64
	CompletedCount       int64
}

// AverageRounds is CompletedRoundsTotal / CompletedCount, or 0 when no
// negotiation has completed.
func (m Metrics) AverageRounds() float64 {
	if m.CompletedCount == 0 {
		return 0
	}
	return float64(m.CompletedRoundsTotal) / float64(m.CompletedCount)
}

func (m *Metrics) add(c Counter, delta int64) {
	switch c {
	case CallsStarted:
		m.CallsStarted += delta
	case CallsEnded:
		m.CallsEnded += delta
	case NegotiationsStarted:
		m.NegotiationsStarted += delta
	case NegotiationsAccepted:
		m.NegotiationsAccepted += delta
	case NegotiationsDeclined:
		m.NegotiationsDeclined += delta
	case CompletedRoundsTotal:
		m.CompletedRoundsTotal += delta
	case CompletedCount:
		m.CompletedCount += delta
	default:
		panic(fmt.Sprintf("state: unknown counter %d", int(c)))
	}
}

// Store owns every CallState, NegotiationState and the Metrics. Values handed
// out by the Store methods are copies.
type Store struct {
	mu           sync.Mutex
	calls        map[string]*model.CallState
	negotiations map[string]*model.NegotiationState
	ending       map[string]struct{}
	metrics      Metrics
	now          func() time.Time
}

func New() *Store {
	return NewWithClock(func() time.Time { return time.Now().UTC() })
}

// NewWithClock is New with an injectable clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		calls:        make(map[string]*model.CallState),
		negotiations: make(map[string]*model.NegotiationState),
		ending:       make(map[string]struct{}),
		now:          now,
	}
}

// Do runs fn while holding the store lock. Pointers obtained from tx must
// not escape fn.
func (s *Store) Do(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx{s: s})
}

// Tx is the locked view passed to Do.
type Tx struct {
	s *Store
}

func (tx *Tx) Now() time.Time {
	return tx.s.now()
}

func (tx *Tx) Call(callID string) (*model.CallState, bool) {
	c, ok := tx.s.calls[callID]
	return c, ok
}

// GetOrCreateCall returns the call, creating it when absent. The first
// writer wins; creating a call counts it as started.
func (tx *Tx) GetOrCreateCall(callID string) (*model.CallState, bool) {
	if c, ok := tx.s.calls[callID]; ok {
		return c, false
	}
	c := &model.CallState{
		CallID:    callID,
		StartedAt: tx.s.now(),
		Metadata:  map[string]any{},
		Summary:   map[string]any{},
	}
	tx.s.calls[callID] = c
	tx.s.metrics.add(CallsStarted, 1)
	return c, true
}

// EndCall marks the call ended. It reports alreadyEnded without touching the
// call or the counters when the call had been ended before.
func (tx *Tx) EndCall(callID string) (alreadyEnded bool, err error) {
	return tx.EndCallAt(callID, tx.s.now())
}

// EndCallAt is EndCall with an explicit end time.
func (tx *Tx) EndCallAt(callID string, at time.Time) (alreadyEnded bool, err error) {
	c, ok := tx.s.calls[callID]
	if !ok {
		return false, fmt.Errorf("call %s: %w", callID, model.ErrNotFound)
	}
	if c.Ended() {
		return true, nil
	}
	delete(tx.s.ending, callID)
	c.EndedAt = &at
	tx.s.metrics.add(CallsEnded, 1)
	return false, nil
}

// ClaimEnd reserves the end of an existing call for the caller. It reports
// false when the call is unknown, already ended, or claimed by another caller.
// The claim is dropped by EndCallAt or ReleaseEnd.
func (tx *Tx) ClaimEnd(callID string) bool {
	c, ok := tx.s.calls[callID]
	if !ok || c.Ended() {
		return false
	}
	if _, held := tx.s.ending[callID]; held {
		return false
	}
	tx.s.ending[callID] = struct{}{}
	return true
}

func (tx *Tx) ReleaseEnd(callID string) {
	delete(tx.s.ending, callID)
}

func (tx *Tx) Negotiation(callID string) (*model.NegotiationState, bool) {
	n, ok := tx.s.negotiations[callID]
	return n, ok
}

func (tx *Tx) PutNegotiation(n *model.NegotiationState) {
	tx.s.negotiations[n.CallID] = n
}

func (tx *Tx) Incr(c Counter, delta int64) {
	tx.s.metrics.add(c, delta)
}

// GetOrCreateCall is the locked form of Tx.GetOrCreateCall. init, when
// non-nil, runs only for a freshly created call.
func (s *Store) GetOrCreateCall(callID string, init func(c *model.CallState)) (model.CallState, bool) {
	var (
		out     model.CallState
		created bool
	)
	_ = s.Do(func(tx *Tx) error {
		var c *model.CallState
		c, created = tx.GetOrCreateCall(callID)
		if created && init != nil {
			init(c)
		}
		out = c.Clone()
		return nil
	})
	return out, created
}

// EndCall is the locked form of Tx.EndCall.
func (s *Store) EndCall(callID string) (bool, error) {
	var already bool
	err := s.Do(func(tx *Tx) error {
		var err error
		already, err = tx.EndCall(callID)
		return err
	})
	return already, err
}

func (s *Store) Call(callID string) (model.CallState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return model.CallState{}, false
	}
	return c.Clone(), true
}

// AnnotateCall lets fn update the summary of an existing call. It reports
// false when the call is unknown; unknown calls are not created.
func (s *Store) AnnotateCall(callID string, fn func(summary map[string]any)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return false
	}
	if c.Summary == nil {
		c.Summary = map[string]any{}
	}
	fn(c.Summary)
	return true
}

func (s *Store) Negotiation(callID string) (model.NegotiationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.negotiations[callID]
	if !ok {
		return model.NegotiationState{}, false
	}
	return n.Clone(), true
}

// PutNegotiation stores a copy of n keyed by its call id.
func (s *Store) PutNegotiation(n model.NegotiationState) {
	c := n.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.negotiations[n.CallID] = &c
}

func (s *Store) Incr(c Counter, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.add(c, delta)
}

// Metrics returns a consistent snapshot of the counters.
func (s *Store) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
