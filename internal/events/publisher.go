// Package events emits domain events to an optional webhook.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/httpclient"
)

const (
	webhookTimeout = 5 * time.Second
	maxInFlight    = 64
)

// Publisher posts event envelopes to a single webhook. With no webhook
// configured events are only logged. Webhook posts run in the background,
// at most maxInFlight at a time; an event arriving while every slot is busy
// is dropped with a warning.
type Publisher struct {
	source     string
	webhookURL string
	http       *httpclient.Client
	now        func() time.Time

	slots    chan struct{}
	inFlight sync.WaitGroup
}

func NewPublisher(source, webhookURL, apiKey string) *Publisher {
	opts := []httpclient.Option{httpclient.WithRetry(httpclient.NoRetry())}
	if apiKey != "" {
		opts = append(opts, httpclient.WithAuth(&httpclient.APIKeyAuth{Key: apiKey}))
	}
	return &Publisher{
		source:     source,
		webhookURL: webhookURL,
		http:       httpclient.NewClient("events", webhookTimeout, opts...),
		now:        time.Now,
		slots:      make(chan struct{}, maxInFlight),
	}
}

// Publish never fails the caller: delivery problems are logged.
func (p *Publisher) Publish(ctx context.Context, eventType, callID string, data map[string]any) {
	if p == nil {
		return
	}
	envelope := Envelope{
		EventID:        "evt_" + uuid.NewString(),
		EventType:      eventType,
		SchemaVersion:  SchemaVersion,
		IdempotencyKey: fmt.Sprintf("%s_%s", eventType, callID),
		Timestamp:      p.now().UTC(),
		Source:         p.source,
		CallID:         callID,
		Data:           data,
	}

	slog.InfoContext(ctx, "event_published",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"call_id", callID,
	)

	if p.webhookURL == "" {
		return
	}
	select {
	case p.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "webhook_dropped",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
		return
	}
	p.inFlight.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.inFlight.Done()
		}()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookTimeout)
		defer cancel()
		p.sendWebhook(sendCtx, envelope)
	}()
}

// Flush waits for in-flight webhook posts, or until ctx is done.
func (p *Publisher) Flush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) sendWebhook(ctx context.Context, envelope Envelope) {
	err := httpclient.NewRequest(http.MethodPost, p.webhookURL).
		Header("X-Event-ID", envelope.EventID).
		Header("X-Event-Type", envelope.EventType).
		Header("Idempotency-Key", envelope.IdempotencyKey).
		JSON(envelope).
		ExecuteJSON(ctx, p.http, nil)
	if err == nil {
		return
	}
	if status := httpclient.StatusCode(err); status != 0 {
		slog.WarnContext(ctx, "webhook_error",
			"event_type", envelope.EventType,
			"status", status,
		)
		return
	}
	slog.WarnContext(ctx, "webhook_failed",
		"event_type", envelope.EventType,
		"error", err,
	)
}
