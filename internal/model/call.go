package model

import "time"

// DashboardSummaryKey is the reserved summary field holding the dashboard
// record built when a call ends.
const DashboardSummaryKey = "dashboard"

// CallState is the process-scoped view of a single inbound call.
type CallState struct {
	CallID     string         `json:"call_id"`
	StartedAt  time.Time      `json:"started_at"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
	FromNumber string         `json:"from_number,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	Outcome    string         `json:"outcome,omitempty"`
	Summary    map[string]any `json:"summary"`
}

// Ended reports whether the call-ended signal has been applied.
func (c CallState) Ended() bool {
	return c.EndedAt != nil
}

// Clone copies the call including its top-level maps.
func (c CallState) Clone() CallState {
	out := c
	if c.EndedAt != nil {
		t := *c.EndedAt
		out.EndedAt = &t
	}
	out.Metadata = cloneMap(c.Metadata)
	out.Summary = cloneMap(c.Summary)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Platform outcome labels sent by the calling workflow.
const (
	PlatformOutcomeAccepted           = "accepted"
	PlatformOutcomeDeclined           = "declined"
	PlatformOutcomeNoMatch            = "no_match"
	PlatformOutcomeFailedVerification = "failed_verification"
	PlatformOutcomeDropped            = "dropped"
	PlatformOutcomeOther              = "other"
)

// ValidPlatformOutcome reports whether s is one of the accepted platform labels.
func ValidPlatformOutcome(s string) bool {
	switch s {
	case PlatformOutcomeAccepted, PlatformOutcomeDeclined, PlatformOutcomeNoMatch,
		PlatformOutcomeFailedVerification, PlatformOutcomeDropped, PlatformOutcomeOther:
		return true
	}
	return false
}

type CallStartedEvent struct {
	CallID     string         `json:"call_id"`
	FromNumber string         `json:"from_number,omitempty"`
	Timestamp  string         `json:"timestamp,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type CallEndedEvent struct {
	CallID    string         `json:"call_id"`
	Timestamp string         `json:"timestamp,omitempty"`
	Outcome   string         `json:"outcome"`
	Summary   map[string]any `json:"summary,omitempty"`
}

// CallAck acknowledges a call webhook. Idempotent is set when the signal had
// already been applied.
type CallAck struct {
	OK         bool   `json:"ok"`
	CallID     string `json:"call_id"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

// CallDetail is a persisted dashboard record together with the live call
// state when the call is still held in memory.
type CallDetail struct {
	CallID     string         `json:"call_id"`
	Dashboard  CallRecord     `json:"dashboard"`
	CallState  *CallState     `json:"call_state"`
	RawSummary map[string]any `json:"raw_summary"`
}
