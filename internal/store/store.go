// Package store persists the dashboard record produced when a call ends.
// Every backend upserts by call id with last-write-wins semantics.
package store

import (
	"context"
	"sort"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// RecordStore defines the interface for call record persistence.
type RecordStore interface {
	Upsert(ctx context.Context, rec model.CallRecord) error
	// Get returns model.ErrNotFound for unknown call ids.
	Get(ctx context.Context, callID string) (model.CallRecord, error)
	// List returns one page of records, most recently ended first, and the
	// total number of records.
	List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error)
	All(ctx context.Context) ([]model.CallRecord, error)
	Close() error
}

// Type names accepted by STORE_TYPE.
const (
	TypeMemory    = "memory"
	TypeMongo     = "mongo"
	TypePostgres  = "postgres"
	TypeSQLite    = "sqlite"
	TypeBolt      = "bolt"
	TypeFirestore = "firestore"
	TypeNone      = "none"
)

// sortNewestFirst orders by ended_at descending, then call id.
func sortNewestFirst(recs []model.CallRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].EndedAt.Equal(recs[j].EndedAt) {
			return recs[i].EndedAt.After(recs[j].EndedAt)
		}
		return recs[i].CallID < recs[j].CallID
	})
}

// page slices an already sorted set of records.
func page(recs []model.CallRecord, limit, offset int) []model.CallRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return []model.CallRecord{}
	}
	end := len(recs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]model.CallRecord, end-offset)
	copy(out, recs[offset:end])
	return out
}
