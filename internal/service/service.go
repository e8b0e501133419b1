// Package service implements the carrier sales operations on top of the
// negotiation engine, the load catalog, carrier verification and call
// record persistence.
package service

import (
	"context"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/catalog"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/events"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/negotiation"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/store"
)

// CarrierVerifier checks a carrier's operating authority.
type CarrierVerifier interface {
	VerifyMC(ctx context.Context, mcNumber string) (model.CarrierVerifyResponse, error)
}

type Service struct {
	state    *state.Store
	engine   *negotiation.Engine
	catalog  *catalog.Catalog
	verifier CarrierVerifier
	records  store.RecordStore
	events   *events.Publisher
}

// New wires a Service. pub may be nil, in which case no events are emitted.
func New(st *state.Store, cat *catalog.Catalog, verifier CarrierVerifier, records store.RecordStore, pub *events.Publisher) *Service {
	return &Service{
		state:    st,
		engine:   negotiation.New(st),
		catalog:  cat,
		verifier: verifier,
		records:  records,
		events:   pub,
	}
}
