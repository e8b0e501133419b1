package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/events"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
)

// CallStarted registers a call. A repeated signal leaves the existing call
// untouched and is reported as idempotent.
func (s *Service) CallStarted(ctx context.Context, ev model.CallStartedEvent) (model.CallAck, error) {
	callID := strings.TrimSpace(ev.CallID)
	if callID == "" {
		return model.CallAck{}, fmt.Errorf("call_id is required: %w", model.ErrValidation)
	}

	_, created := s.state.GetOrCreateCall(callID, func(c *model.CallState) {
		c.FromNumber = strings.TrimSpace(ev.FromNumber)
		for k, v := range ev.Metadata {
			c.Metadata[k] = v
		}
	})
	if created {
		slog.InfoContext(ctx, "call_started", "call_id", callID, "from_number", ev.FromNumber)
	}
	return model.CallAck{OK: true, CallID: callID, Idempotent: !created}, nil
}

// CallEnded classifies and persists the outcome of a call, then marks it
// ended. The end is claimed and the record built under the state lock, the
// record is written to the record store outside it, and the end is committed
// under the lock again. A delivery that finds the call ended or claimed is
// idempotent and writes nothing. If persistence fails the claim is released
// so the webhook can be retried.
func (s *Service) CallEnded(ctx context.Context, ev model.CallEndedEvent) (model.CallAck, error) {
	callID := strings.TrimSpace(ev.CallID)
	if callID == "" {
		return model.CallAck{}, fmt.Errorf("call_id is required: %w", model.ErrValidation)
	}
	if ev.Outcome == "" {
		ev.Outcome = model.PlatformOutcomeOther
	}
	if !model.ValidPlatformOutcome(ev.Outcome) {
		return model.CallAck{}, fmt.Errorf("unknown outcome %q: %w", ev.Outcome, model.ErrValidation)
	}
	ev.CallID = callID

	var (
		rec     model.CallRecord
		claimed bool
	)
	_ = s.state.Do(func(tx *state.Tx) error {
		call, _ := tx.GetOrCreateCall(callID)
		if claimed = tx.ClaimEnd(callID); !claimed {
			return nil
		}
		neg, _ := tx.Negotiation(callID)
		rec = buildRecord(*call, neg, ev, tx.Now().UTC())
		return nil
	})
	if !claimed {
		slog.InfoContext(ctx, "call_end_duplicate", "call_id", callID)
		return model.CallAck{OK: true, CallID: callID, Idempotent: true}, nil
	}

	if err := s.records.Upsert(ctx, rec); err != nil {
		_ = s.state.Do(func(tx *state.Tx) error {
			tx.ReleaseEnd(callID)
			return nil
		})
		slog.ErrorContext(ctx, "call_record_persist_failed", "call_id", callID, "error", err)
		return model.CallAck{}, fmt.Errorf("persist call record %s: %w", callID, err)
	}

	err := s.state.Do(func(tx *state.Tx) error {
		if _, err := tx.EndCallAt(callID, rec.EndedAt); err != nil {
			return err
		}
		call, _ := tx.Call(callID)
		call.Outcome = ev.Outcome
		for k, v := range ev.Summary {
			call.Summary[k] = v
		}
		call.Summary[model.DashboardSummaryKey] = rec
		return nil
	})
	if err != nil {
		return model.CallAck{}, err
	}

	slog.InfoContext(ctx, "call_ended",
		"call_id", callID,
		"outcome", rec.Outcome,
		"raw_outcome", rec.RawOutcome,
	)
	s.events.Publish(ctx, events.EventCallEnded, callID, map[string]any{
		"outcome":         rec.Outcome,
		"agreed":          rec.Agreed,
		"transfer_to_rep": rec.TransferToRep,
		"final_offer":     rec.FinalOffer,
		"load_id":         rec.LoadID,
	})
	return model.CallAck{OK: true, CallID: callID}, nil
}

// VerifyCarrier checks the carrier with FMCSA and, when the call is known,
// notes the result on its summary.
func (s *Service) VerifyCarrier(ctx context.Context, req model.CarrierVerifyRequest) (model.CarrierVerifyResponse, error) {
	resp, err := s.verifier.VerifyMC(ctx, req.MCNumber)
	if err != nil {
		return model.CarrierVerifyResponse{}, err
	}

	if callID := strings.TrimSpace(req.CallID); callID != "" {
		s.state.AnnotateCall(callID, func(summary map[string]any) {
			summary["mc_number"] = req.MCNumber
			summary["carrier_verified"] = resp.Verified
			summary["carrier_eligible"] = resp.Eligible
			summary["carrier_reason"] = resp.Reason
		})
	}
	slog.InfoContext(ctx, "carrier_verified",
		"mc_number", resp.Carrier.MCNumber,
		"eligible", resp.Eligible,
		"reason", resp.Reason,
	)
	return resp, nil
}
