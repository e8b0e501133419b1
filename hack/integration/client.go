// Package integration holds black-box tests that run against a live
// carrier-sales server. They skip when no server answers /health.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const DefaultBaseURL = "http://localhost:8080"

// Client is the integration test client
type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAPIKey sets the API key for authenticated requests
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// Request makes an HTTP request against path on the server.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	return c.http.Do(req)
}

// JSON makes a request and decodes the JSON response
func (c *Client) JSON(ctx context.Context, method, path string, body, result any) error {
	status, data, err := c.RequestWithStatus(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("HTTP %d: %s", status, string(data))
	}
	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

// RequestWithStatus returns the status code and raw body without treating
// error statuses as failures.
func (c *Client) RequestWithStatus(ctx context.Context, method, path string, body any) (int, []byte, error) {
	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// HealthCheck checks if the server is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.Request(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// Webhooks

func (c *Client) CallStarted(ctx context.Context, ev model.CallStartedEvent) (model.CallAck, error) {
	var ack model.CallAck
	err := c.JSON(ctx, http.MethodPost, "/webhooks/happyrobot/call-started", ev, &ack)
	return ack, err
}

func (c *Client) CallEnded(ctx context.Context, ev model.CallEndedEvent) (model.CallAck, error) {
	var ack model.CallAck
	err := c.JSON(ctx, http.MethodPost, "/webhooks/happyrobot/call-ended", ev, &ack)
	return ack, err
}

// Loads and negotiation API

func (c *Client) SearchLoads(ctx context.Context, req model.LoadSearchRequest) (model.LoadSearchResponse, error) {
	var resp model.LoadSearchResponse
	err := c.JSON(ctx, http.MethodPost, "/v1/loads/search", req, &resp)
	return resp, err
}

func (c *Client) NegotiationStep(ctx context.Context, req model.NegotiationStepRequest) (model.NegotiationResponse, error) {
	var resp model.NegotiationResponse
	err := c.JSON(ctx, http.MethodPost, "/v1/negotiations/step", req, &resp)
	return resp, err
}

// Dashboard API

func (c *Client) GetCall(ctx context.Context, callID string) (model.CallDetail, error) {
	var detail model.CallDetail
	err := c.JSON(ctx, http.MethodGet, "/v1/metrics/dashboard/calls/"+callID, nil, &detail)
	return detail, err
}

func (c *Client) MetricsOverview(ctx context.Context) (model.MetricsOverview, error) {
	var m model.MetricsOverview
	err := c.JSON(ctx, http.MethodGet, "/v1/metrics/overview", nil, &m)
	return m, err
}
