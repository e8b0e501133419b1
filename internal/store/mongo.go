package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const mongoOpTimeout = 5 * time.Second

type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore binds to collName in dbName. Embedded summary documents are
// decoded as plain maps so they render as JSON objects.
func NewMongoStore(client *mongo.Client, dbName, collName string) *MongoStore {
	opts := options.Collection().SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	return &MongoStore{
		coll: client.Database(dbName).Collection(collName, opts),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ended_at", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}}},
	}
	_, err := s.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.CallID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var rec model.CallRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": callID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.CallRecord{}, fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
		}
		return model.CallRecord{}, err
	}
	return rec, nil
}

func (s *MongoStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count call records: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	recs, err := s.find(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return recs, int(total), nil
}

func (s *MongoStore) All(ctx context.Context) ([]model.CallRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	return s.find(ctx, options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}, {Key: "_id", Value: 1}}))
}

func (s *MongoStore) find(ctx context.Context, opts *options.FindOptions) ([]model.CallRecord, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find call records: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	recs := make([]model.CallRecord, 0)
	for cur.Next(ctx) {
		var rec model.CallRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *MongoStore) Close() error {
	// the client is owned by main
	return nil
}
