package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/middleware"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/service"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	svc *service.Service
}

func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCallStarted handles POST /webhooks/happyrobot/call-started
func (h *Handlers) HandleCallStarted(w http.ResponseWriter, r *http.Request) {
	var req model.CallStartedEvent
	if err := decodeJSON(r, &req, "call_id"); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := h.svc.CallStarted(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// HandleCallEnded handles POST /webhooks/happyrobot/call-ended
func (h *Handlers) HandleCallEnded(w http.ResponseWriter, r *http.Request) {
	var req model.CallEndedEvent
	if err := decodeJSON(r, &req, "call_id"); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := h.svc.CallEnded(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// HandleVerifyMC handles POST /v1/carriers/verify-mc
func (h *Handlers) HandleVerifyMC(w http.ResponseWriter, r *http.Request) {
	var req model.CarrierVerifyRequest
	if err := decodeJSON(r, &req, "mc_number"); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.VerifyCarrier(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSearchLoads handles POST /v1/loads/search
func (h *Handlers) HandleSearchLoads(w http.ResponseWriter, r *http.Request) {
	var req model.LoadSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SearchLoads(r.Context(), req))
}

// HandleGetLoad handles GET /v1/loads/{load_id}
func (h *Handlers) HandleGetLoad(w http.ResponseWriter, r *http.Request) {
	load, err := h.svc.GetLoad(r.Context(), r.PathValue("load_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, load)
}

// HandleNegotiationStep handles POST /v1/negotiations/step
func (h *Handlers) HandleNegotiationStep(w http.ResponseWriter, r *http.Request) {
	var req model.NegotiationStepRequest
	if err := decodeJSON(r, &req, "call_id", "load_id", "carrier_offer"); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.NegotiationStep(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStartNegotiation handles POST /v1/negotiations
func (h *Handlers) HandleStartNegotiation(w http.ResponseWriter, r *http.Request) {
	var req model.NegotiationStartRequest
	if err := decodeJSON(r, &req, "call_id", "load_id", "carrier_initial_offer"); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.StartNegotiation(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGetNegotiation handles GET /v1/negotiations/{call_id}
func (h *Handlers) HandleGetNegotiation(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNegotiation(r.Context(), r.PathValue("call_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// HandleCounterNegotiation handles POST /v1/negotiations/{call_id}/counter
func (h *Handlers) HandleCounterNegotiation(w http.ResponseWriter, r *http.Request) {
	var req model.NegotiationCounterRequest
	if err := decodeJSON(r, &req, "carrier_offer"); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.CounterNegotiation(r.Context(), r.PathValue("call_id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAcceptNegotiation handles POST /v1/negotiations/{call_id}/accept
func (h *Handlers) HandleAcceptNegotiation(w http.ResponseWriter, r *http.Request) {
	var req model.NegotiationAcceptRequest
	if err := decodeJSON(r, &req, "final_rate"); err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.AcceptNegotiation(r.Context(), r.PathValue("call_id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDeclineNegotiation handles POST /v1/negotiations/{call_id}/decline.
// The body is optional.
func (h *Handlers) HandleDeclineNegotiation(w http.ResponseWriter, r *http.Request) {
	var req model.NegotiationDeclineRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, err)
		return
	}
	resp, err := h.svc.DeclineNegotiation(r.Context(), r.PathValue("call_id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMetricsOverview handles GET /v1/metrics/overview
func (h *Handlers) HandleMetricsOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Overview())
}

func (h *Handlers) HandleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.DashboardOverview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *Handlers) HandleOutcomeDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.svc.OutcomeDistribution(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

func (h *Handlers) HandleSentimentDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.svc.SentimentDistribution(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

// HandleListCalls handles GET /v1/metrics/dashboard/calls?limit=&offset=
func (h *Handlers) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.ListCalls(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetCall handles GET /v1/metrics/dashboard/calls/{call_id}
func (h *Handlers) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetCall(r.Context(), r.PathValue("call_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

var errEmptyBody = fmt.Errorf("request body is empty: %w", model.ErrValidation)

// decodeJSON reads a JSON object into dst. Fields named in required must be
// present and not null.
func decodeJSON(r *http.Request, dst any, required ...string) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request: %w", model.ErrValidation)
	}
	defer r.Body.Close()
	if len(body) == 0 {
		return errEmptyBody
	}

	if len(required) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("invalid request body: %w", model.ErrValidation)
		}
		for _, f := range required {
			if raw, ok := fields[f]; !ok || string(raw) == "null" {
				return fmt.Errorf("%s is required: %w", f, model.ErrValidation)
			}
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid request body: %w", model.ErrValidation)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, model.ErrValidation)
	}
	return n, nil
}

// writeError maps error kinds to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, model.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, model.ErrUpstream):
		status, code = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, model.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "not_configured"
	default:
		slog.ErrorContext(r.Context(), "request_failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		middleware.WriteError(w, r, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		return
	}
	middleware.WriteError(w, r, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
