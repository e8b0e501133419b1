package httpapi

import (
	"net/http"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/middleware"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/service"
)

type Options struct {
	APIKeys        middleware.APIKeys
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	RequestTimeout time.Duration
}

func NewRouter(svc *service.Service, opts Options) http.Handler {
	h := NewHandlers(svc)

	api := http.NewServeMux()

	api.HandleFunc("POST /webhooks/happyrobot/call-started", h.HandleCallStarted)
	api.HandleFunc("POST /webhooks/happyrobot/call-ended", h.HandleCallEnded)

	api.HandleFunc("POST /v1/carriers/verify-mc", h.HandleVerifyMC)

	api.HandleFunc("POST /v1/loads/search", h.HandleSearchLoads)
	api.HandleFunc("GET /v1/loads/{load_id}", h.HandleGetLoad)

	api.HandleFunc("POST /v1/negotiations/step", h.HandleNegotiationStep)
	api.HandleFunc("POST /v1/negotiations", h.HandleStartNegotiation)
	api.HandleFunc("GET /v1/negotiations/{call_id}", h.HandleGetNegotiation)
	api.HandleFunc("POST /v1/negotiations/{call_id}/counter", h.HandleCounterNegotiation)
	api.HandleFunc("POST /v1/negotiations/{call_id}/accept", h.HandleAcceptNegotiation)
	api.HandleFunc("POST /v1/negotiations/{call_id}/decline", h.HandleDeclineNegotiation)

	api.HandleFunc("GET /v1/metrics/overview", h.HandleMetricsOverview)
	api.HandleFunc("GET /v1/metrics/dashboard/overview", h.HandleDashboardOverview)
	api.HandleFunc("GET /v1/metrics/dashboard/outcomes", h.HandleOutcomeDistribution)
	api.HandleFunc("GET /v1/metrics/dashboard/sentiment", h.HandleSentimentDistribution)
	api.HandleFunc("GET /v1/metrics/dashboard/calls", h.HandleListCalls)
	api.HandleFunc("GET /v1/metrics/dashboard/calls/{call_id}", h.HandleGetCall)

	protected := []func(http.Handler) http.Handler{middleware.Auth(opts.APIKeys)}
	if opts.RateLimiter != nil {
		protected = append(protected, middleware.RateLimit(opts.RateLimiter))
	}
	apiHandler := applyMiddleware(api, protected...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("/v1/", apiHandler)
	mux.Handle("/webhooks/", apiHandler)

	return applyMiddleware(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recovery,
		middleware.Timeout(opts.RequestTimeout),
	)
}

// applyMiddleware wraps handler so that the first middleware is outermost.
func applyMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
