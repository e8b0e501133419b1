package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (s *FirestoreStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	_, err := s.client.Collection(s.collection).Doc(rec.CallID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(callID).Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return model.CallRecord{}, fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
		}
		return model.CallRecord{}, fmt.Errorf("get call record: %w", err)
	}

	var rec model.CallRecord
	if err := doc.DataTo(&rec); err != nil {
		return model.CallRecord{}, fmt.Errorf("decode call record: %w", err)
	}
	return rec, nil
}

func (s *FirestoreStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	total, err := s.count(ctx)
	if err != nil {
		return nil, 0, err
	}

	q := s.client.Collection(s.collection).OrderBy("ended_at", firestore.Desc)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	recs, err := s.collect(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (s *FirestoreStore) All(ctx context.Context) ([]model.CallRecord, error) {
	return s.collect(ctx, s.client.Collection(s.collection).OrderBy("ended_at", firestore.Desc))
}

func (s *FirestoreStore) count(ctx context.Context) (int, error) {
	iter := s.client.Collection(s.collection).Select().Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("count call records: %w", err)
		}
		n++
	}
}

func (s *FirestoreStore) collect(ctx context.Context, q firestore.Query) ([]model.CallRecord, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	recs := make([]model.CallRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate call records: %w", err)
		}

		var rec model.CallRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode call record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
