package model

import "time"

type NegotiationStatus string

const (
	NegotiationInProgress NegotiationStatus = "in_progress"
	NegotiationAccepted   NegotiationStatus = "accepted"
	NegotiationDeclined   NegotiationStatus = "declined"
)

// Terminal reports whether no further negotiation operations are permitted.
func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationAccepted || s == NegotiationDeclined
}

type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionCounter Decision = "counter"
	DecisionDecline Decision = "decline"
)

// Policy is the rate band a negotiation operates in. It is derived once from
// the load's listed rate and never changes afterwards.
type Policy struct {
	Target    float64 `json:"target"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	MaxRounds int     `json:"max_rounds"`
}

// InBand reports whether offer falls inside [Min, Max].
func (p Policy) InBand(offer float64) bool {
	return p.Min <= offer && offer <= p.Max
}

type NegotiationState struct {
	NegotiationID     string            `json:"negotiation_id"`
	CallID            string            `json:"call_id"`
	Load              Load              `json:"load"`
	MCNumber          string            `json:"mc_number,omitempty"`
	Status            NegotiationStatus `json:"status"`
	Round             int               `json:"round"`
	Policy            Policy            `json:"policy"`
	FirstCarrierOffer float64           `json:"first_carrier_offer"`
	LastCarrierOffer  float64           `json:"last_carrier_offer"`
	LastCounterOffer  *float64          `json:"last_counter_offer,omitempty"`
	FinalRate         *float64          `json:"final_rate,omitempty"`
	DeclineReason     string            `json:"decline_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers never share pointers with the store.
func (n NegotiationState) Clone() NegotiationState {
	out := n
	if n.LastCounterOffer != nil {
		v := *n.LastCounterOffer
		out.LastCounterOffer = &v
	}
	if n.FinalRate != nil {
		v := *n.FinalRate
		out.FinalRate = &v
	}
	return out
}

type NegotiationStepRequest struct {
	CallID       string  `json:"call_id"`
	LoadID       string  `json:"load_id"`
	MCNumber     string  `json:"mc_number,omitempty"`
	CarrierOffer float64 `json:"carrier_offer"`
}

type NegotiationStartRequest struct {
	CallID              string  `json:"call_id"`
	LoadID              string  `json:"load_id"`
	MCNumber            string  `json:"mc_number,omitempty"`
	CarrierInitialOffer float64 `json:"carrier_initial_offer"`
}

type NegotiationCounterRequest struct {
	CarrierOffer float64 `json:"carrier_offer"`
}

type NegotiationAcceptRequest struct {
	FinalRate float64 `json:"final_rate"`
}

type NegotiationDeclineRequest struct {
	Reason string `json:"reason,omitempty"`
}

// NegotiationResponse is returned by every negotiation operation.
type NegotiationResponse struct {
	NegotiationID string            `json:"negotiation_id"`
	CallID        string            `json:"call_id"`
	Status        NegotiationStatus `json:"status"`
	Round         int               `json:"round"`
	Decision      Decision          `json:"decision"`
	CounterOffer  *float64          `json:"counter_offer"`
	FinalRate     *float64          `json:"final_rate"`
	Policy        Policy            `json:"policy"`
	TransferToRep bool              `json:"transfer_to_rep"`
}
