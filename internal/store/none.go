package store

import (
	"context"
	"fmt"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// UnconfiguredStore stands in when STORE_TYPE=none. Every operation fails
// with model.ErrUnavailable so callers can report the missing configuration.
type UnconfiguredStore struct{}

func (UnconfiguredStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	return errUnconfigured()
}

func (UnconfiguredStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	return model.CallRecord{}, errUnconfigured()
}

func (UnconfiguredStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	return nil, 0, errUnconfigured()
}

func (UnconfiguredStore) All(ctx context.Context) ([]model.CallRecord, error) {
	return nil, errUnconfigured()
}

func (UnconfiguredStore) Close() error {
	return nil
}

func errUnconfigured() error {
	return fmt.Errorf("record store: set STORE_TYPE to enable persistence: %w", model.ErrUnavailable)
}
