package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/httpclient"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const (
	DefaultFMCSABaseURL = "https://mobile.fmcsa.dot.gov/qc/services"
	DefaultFMCSATimeout = 8 * time.Second
)

// wrapperKeys are the container fields QCMobile responses may nest the
// carrier record under, in lookup order.
var wrapperKeys = []string{"content", "carriers", "carrier", "results", "result"}

// FMCSAClient looks carriers up by MC docket number on the FMCSA QCMobile API.
type FMCSAClient struct {
	baseURL    string
	configured bool
	http       *httpclient.Client
}

func NewFMCSAClient(baseURL, webKey string, timeout time.Duration) *FMCSAClient {
	if baseURL == "" {
		baseURL = DefaultFMCSABaseURL
	}
	if timeout <= 0 {
		timeout = DefaultFMCSATimeout
	}
	return &FMCSAClient{
		baseURL:    baseURL,
		configured: webKey != "",
		http: httpclient.NewClient("fmcsa", timeout,
			httpclient.WithRetry(httpclient.NoRetry()),
			httpclient.WithAuth(&httpclient.QueryParamAuth{Name: "webKey", Value: webKey}),
		),
	}
}

// VerifyMC reports whether the carrier exists and may operate. Upstream
// failures are returned wrapped in model.ErrUpstream; an unknown docket is
// a normal not_found result.
func (c *FMCSAClient) VerifyMC(ctx context.Context, mcNumber string) (model.CarrierVerifyResponse, error) {
	mc := NormalizeMC(mcNumber)
	if mc == "" {
		return model.CarrierVerifyResponse{}, fmt.Errorf("mc_number is required: %w", model.ErrValidation)
	}
	if !c.configured {
		return model.CarrierVerifyResponse{}, fmt.Errorf("FMCSA_WEBKEY is not set: %w", model.ErrUnavailable)
	}

	var body any
	err := httpclient.NewRequest(http.MethodGet, c.baseURL).
		Path("carriers", "docket-number", mc).
		Header("Accept", "application/json").
		ExecuteJSON(ctx, c.http, &body)

	switch status := httpclient.StatusCode(err); {
	case err == nil:
	case status == http.StatusNotFound:
		return unverified(mc, model.CarrierReasonNotFound), nil
	case status == http.StatusUnauthorized:
		slog.WarnContext(ctx, "fmcsa_auth_failed", "mc_number", mc)
		return model.CarrierVerifyResponse{}, fmt.Errorf("fmcsa auth failed, check FMCSA_WEBKEY: %w", model.ErrUpstream)
	case status != 0:
		return model.CarrierVerifyResponse{}, fmt.Errorf("fmcsa returned %d: %w", status, model.ErrUpstream)
	default:
		var decErr *httpclient.DecodeError
		if errors.As(err, &decErr) {
			return model.CarrierVerifyResponse{}, fmt.Errorf("fmcsa returned invalid response: %w", model.ErrUpstream)
		}
		slog.WarnContext(ctx, "fmcsa_request_failed", "mc_number", mc, "error", err)
		return model.CarrierVerifyResponse{}, fmt.Errorf("fmcsa request error: %w", model.ErrUpstream)
	}

	carrier := pickCarrier(body)
	if carrier == nil {
		return unverified(mc, model.CarrierReasonUnexpectedResponse), nil
	}

	eligible := carrier["allowToOperate"] == "Y" && carrier["outOfService"] != "Y"
	resp := model.CarrierVerifyResponse{
		Verified: true,
		Eligible: eligible,
		Reason:   model.CarrierReasonNotEligible,
		Carrier: model.CarrierInfo{
			MCNumber:  mc,
			LegalName: firstString(carrier, "legalName", "dbaName"),
		},
	}
	if n := scalarString(carrier["mcNumber"]); n != "" {
		resp.Carrier.MCNumber = n
	}
	status := "RESTRICTED"
	if eligible {
		status = "ACTIVE"
		resp.Reason = model.CarrierReasonEligible
	}
	resp.Carrier.Status = &status
	return resp, nil
}

// NormalizeMC trims whitespace and an optional "MC" prefix.
func NormalizeMC(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "MC") {
		s = strings.TrimLeft(s[2:], " -#")
	}
	return s
}

func unverified(mc, reason string) model.CarrierVerifyResponse {
	return model.CarrierVerifyResponse{
		Reason:  reason,
		Carrier: model.CarrierInfo{MCNumber: mc},
	}
}

// pickCarrier unwraps container objects and arrays until it reaches the
// carrier record itself.
func pickCarrier(data any) map[string]any {
	for depth := 0; depth < 6; depth++ {
		switch v := data.(type) {
		case []any:
			if len(v) == 0 {
				return nil
			}
			data = v[0]
			continue
		case map[string]any:
			inner, ok := unwrap(v)
			if !ok {
				return v
			}
			data = inner
			continue
		default:
			return nil
		}
	}
	m, _ := data.(map[string]any)
	return m
}

func unwrap(m map[string]any) (any, bool) {
	for _, k := range wrapperKeys {
		switch v := m[k].(type) {
		case map[string]any:
			return v, true
		case []any:
			if len(v) > 0 {
				if _, ok := v[0].(map[string]any); ok {
					return v, true
				}
			}
		}
	}
	return nil, false
}

func firstString(m map[string]any, keys ...string) *string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return &s
		}
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
