package model

type CarrierVerifyRequest struct {
	MCNumber string `json:"mc_number"`
	CallID   string `json:"call_id,omitempty"`
}

type CarrierInfo struct {
	MCNumber  string  `json:"mc_number"`
	LegalName *string `json:"legal_name"`
	Status    *string `json:"status"`
}

type CarrierVerifyResponse struct {
	Verified bool        `json:"verified"`
	Eligible bool        `json:"eligible"`
	Reason   string      `json:"reason"`
	Carrier  CarrierInfo `json:"carrier"`
}

const (
	CarrierReasonEligible           = "eligible"
	CarrierReasonNotEligible        = "not_eligible"
	CarrierReasonNotFound           = "not_found"
	CarrierReasonUnexpectedResponse = "unexpected_response"
)
