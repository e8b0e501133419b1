package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/config"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/store"
)

// openStore builds the record store selected by STORE_TYPE. The returned
// func releases it and any client it owns.
func openStore(ctx context.Context, cfg *config.Config) (store.RecordStore, func(), error) {
	var (
		records     store.RecordStore
		mongoClient *mongo.Client
	)

	switch cfg.StoreType {
	case store.TypeMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ping mongodb: %w", err)
		}
		mongoStore := store.NewMongoStore(client, cfg.MongoDB, cfg.MongoCollectionCalls)
		if err := mongoStore.EnsureIndexes(connectCtx); err != nil {
			slog.Warn("failed to create indexes", "error", err)
		}
		records, mongoClient = mongoStore, client
		slog.Info("using mongodb store", "db", cfg.MongoDB, "collection", cfg.MongoCollectionCalls)

	case store.TypePostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		records = pg
		slog.Info("using postgres store")

	case store.TypeSQLite:
		sq, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		records = sq
		slog.Info("using sqlite store", "path", cfg.SQLitePath)

	case store.TypeBolt:
		if err := ensureDir(cfg.BoltPath); err != nil {
			return nil, nil, err
		}
		b, err := store.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		records = b
		slog.Info("using bolt store", "path", cfg.BoltPath)

	case store.TypeFirestore:
		fs, err := store.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCollection)
		if err != nil {
			return nil, nil, err
		}
		records = fs
		slog.Info("using firestore store", "project", cfg.FirestoreProjectID, "collection", cfg.FirestoreCollection)

	case store.TypeNone:
		records = store.UnconfiguredStore{}
		slog.Warn("no record store configured, call-ended webhooks and dashboard endpoints will return 503")

	case store.TypeMemory:
		records = store.NewMemoryStore()
		slog.Info("using in-memory store (development mode)")

	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}

	closeFn := func() {
		if err := records.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
		if mongoClient != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoClient.Disconnect(ctx); err != nil {
				slog.Error("failed to disconnect mongodb", "error", err)
			}
		}
	}
	return records, closeFn, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
