package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const boltBucket = "call_records"

// BoltStore keeps call records as JSON values in a single-file BoltDB
// database, keyed by call id.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode call record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(rec.CallID), data)
	})
}

func (s *BoltStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	var rec model.CallRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(callID))
		if v == nil {
			return fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return model.CallRecord{}, err
	}
	return rec, nil
}

func (s *BoltStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, 0, err
	}
	return page(all, limit, offset), len(all), nil
}

// All reads the whole bucket. Records are keyed by call id, so ordering by
// end time happens in memory.
func (s *BoltStore) All(ctx context.Context) ([]model.CallRecord, error) {
	recs := make([]model.CallRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).ForEach(func(k, v []byte) error {
			var rec model.CallRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode call record %s: %w", k, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(recs)
	return recs, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
