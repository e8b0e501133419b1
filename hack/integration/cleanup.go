package integration

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseCleaner removes call records written by integration runs when the
// server under test uses the mongo store.
type DatabaseCleaner struct {
	client *mongo.Client
	calls  *mongo.Collection
}

func NewDatabaseCleaner(mongoURI, dbName, collection string) (*DatabaseCleaner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &DatabaseCleaner{
		client: client,
		calls:  client.Database(dbName).Collection(collection),
	}, nil
}

func (d *DatabaseCleaner) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// CleanCallPrefix deletes every record whose call_id starts with prefix.
func (d *DatabaseCleaner) CleanCallPrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := d.calls.DeleteMany(ctx, bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean calls: %w", err)
	}
	return res.DeletedCount, nil
}
