package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/events"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/negotiation"
)

// NegotiationStep drives the conversational flow: one carrier offer in, one
// decision out.
func (s *Service) NegotiationStep(ctx context.Context, req model.NegotiationStepRequest) (model.NegotiationResponse, error) {
	if strings.TrimSpace(req.CallID) == "" {
		return model.NegotiationResponse{}, fmt.Errorf("call_id is required: %w", model.ErrValidation)
	}
	load, err := s.catalog.Get(req.LoadID)
	if err != nil {
		return model.NegotiationResponse{}, err
	}
	res, err := s.engine.Step(req.CallID, load, req.MCNumber, req.CarrierOffer)
	return s.respond(ctx, res, err)
}

func (s *Service) StartNegotiation(ctx context.Context, req model.NegotiationStartRequest) (model.NegotiationResponse, error) {
	if strings.TrimSpace(req.CallID) == "" {
		return model.NegotiationResponse{}, fmt.Errorf("call_id is required: %w", model.ErrValidation)
	}
	load, err := s.catalog.Get(req.LoadID)
	if err != nil {
		return model.NegotiationResponse{}, err
	}
	res, err := s.engine.Start(req.CallID, load, req.MCNumber, req.CarrierInitialOffer)
	return s.respond(ctx, res, err)
}

func (s *Service) CounterNegotiation(ctx context.Context, callID string, req model.NegotiationCounterRequest) (model.NegotiationResponse, error) {
	res, err := s.engine.Counter(callID, req.CarrierOffer)
	return s.respond(ctx, res, err)
}

func (s *Service) AcceptNegotiation(ctx context.Context, callID string, req model.NegotiationAcceptRequest) (model.NegotiationResponse, error) {
	res, err := s.engine.Accept(callID, req.FinalRate)
	return s.respond(ctx, res, err)
}

func (s *Service) DeclineNegotiation(ctx context.Context, callID string, req model.NegotiationDeclineRequest) (model.NegotiationResponse, error) {
	res, err := s.engine.Decline(callID, req.Reason)
	return s.respond(ctx, res, err)
}

func (s *Service) GetNegotiation(ctx context.Context, callID string) (model.NegotiationState, error) {
	return s.engine.Get(callID)
}

// respond turns an engine result into a response and publishes completion
// events. It runs after the engine has released the state lock.
func (s *Service) respond(ctx context.Context, res negotiation.Result, err error) (model.NegotiationResponse, error) {
	if err != nil {
		return model.NegotiationResponse{}, err
	}
	if res.Completed() {
		s.events.Publish(ctx, events.EventNegotiationCompleted, res.State.CallID, map[string]any{
			"status":     res.State.Status,
			"rounds":     res.State.Round,
			"load_id":    res.State.Load.LoadID,
			"final_rate": res.State.FinalRate,
			"mc_number":  res.State.MCNumber,
		})
	}
	return res.Response(), nil
}
