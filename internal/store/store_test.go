package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/testutil"
)

// exerciseStore runs the behavior every RecordStore backend shares.
func exerciseStore(t *testing.T, s RecordStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Get(ctx, "missing")
	testutil.AssertErrorIs(t, err, model.ErrNotFound)

	for i, id := range []string{"call-a", "call-b", "call-c"} {
		rec := testutil.NewCallRecordFixture(id).EndedAt(base.Add(time.Duration(i) * time.Minute)).Build()
		testutil.AssertNoError(t, s.Upsert(ctx, rec), id)
	}

	// Re-upserting replaces the whole record.
	declined := testutil.NewCallRecordFixture("call-a").
		EndedAt(base.Add(10 * time.Minute)).
		Outcome(model.OutcomeDeclined).
		Verified(nil).
		Sentiment(nil).
		Build()
	testutil.AssertNoError(t, s.Upsert(ctx, declined))

	got, err := s.Get(ctx, "call-a")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.OutcomeDeclined, got.Outcome)
	testutil.AssertEqual(t, false, got.Agreed)
	testutil.AssertTrue(t, got.EndedAt.Equal(base.Add(10*time.Minute)), "ended_at = %v", got.EndedAt)
	testutil.AssertTrue(t, got.Verified == nil, "verified should be null")
	testutil.AssertTrue(t, got.Sentiment == nil, "sentiment should be null")
	testutil.AssertTrue(t, got.FinalOffer == nil, "final_offer should be null")
	testutil.AssertTrue(t, got.LoadboardRate != nil && *got.LoadboardRate == 1000, "loadboard_rate = %v", got.LoadboardRate)
	testutil.AssertTrue(t, got.Rounds != nil && *got.Rounds == 3, "rounds = %v", got.Rounds)
	testutil.AssertEqual(t, "Positive", got.RawSummary["sentiment"])

	all, err := s.All(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, len(all))
	want := []string{"call-a", "call-c", "call-b"}
	for i, rec := range all {
		testutil.AssertEqual(t, want[i], rec.CallID, "position", i)
	}

	page, total, err := s.List(ctx, 1, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, total)
	testutil.AssertEqual(t, 1, len(page))
	testutil.AssertEqual(t, "call-c", page[0].CallID)

	page, total, err = s.List(ctx, 10, 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, total)
	testutil.AssertEqual(t, 0, len(page))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "calls.db"))
	testutil.AssertNoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "calls.db")

	s, err := OpenSQLite(ctx, path)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, s.Upsert(ctx, testutil.NewCallRecordFixture("call-1").Build()))
	testutil.AssertNoError(t, s.Close())

	// Migrations are idempotent and data survives a restart.
	s, err = OpenSQLite(ctx, path)
	testutil.AssertNoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "call-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.OutcomeAcceptedTransferred, got.Outcome)
	testutil.AssertTrue(t, got.StartedAt != nil, "started_at lost")
}

func TestBoltStore(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "calls.bolt"))
	testutil.AssertNoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	db := testutil.NewMongoTestDB(t)

	s := NewMongoStore(db.Client, db.DBName, "calls")
	testutil.AssertNoError(t, s.EnsureIndexes(context.Background()))

	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	truncate := func() {
		_, err := s.pool.Exec(ctx, "TRUNCATE calls")
		testutil.AssertNoError(t, err)
	}
	truncate()
	t.Cleanup(truncate)

	exerciseStore(t, s)
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	collection := fmt.Sprintf("calls_test_%d", time.Now().UnixNano())
	s, err := NewFirestoreStore(context.Background(), "carrier-sales-test", collection)
	testutil.AssertNoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestUnconfiguredStore(t *testing.T) {
	ctx := context.Background()
	var s RecordStore = UnconfiguredStore{}

	testutil.AssertErrorIs(t, s.Upsert(ctx, model.CallRecord{CallID: "x"}), model.ErrUnavailable)
	_, err := s.Get(ctx, "x")
	testutil.AssertErrorIs(t, err, model.ErrUnavailable)
	_, _, err = s.List(ctx, 10, 0)
	testutil.AssertErrorIs(t, err, model.ErrUnavailable)
	_, err = s.All(ctx)
	testutil.AssertErrorIs(t, err, model.ErrUnavailable)
	testutil.AssertNoError(t, s.Close())
}

func TestPage(t *testing.T) {
	recs := make([]model.CallRecord, 5)
	for i := range recs {
		recs[i].CallID = string(rune('a' + i))
	}

	tests := []struct {
		name          string
		limit, offset int
		want          string
	}{
		{"no limit", 0, 0, "abcde"},
		{"first page", 2, 0, "ab"},
		{"middle", 2, 2, "cd"},
		{"short last page", 2, 4, "e"},
		{"past the end", 2, 9, ""},
		{"negative offset", 1, -3, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ""
			for _, r := range page(recs, tt.limit, tt.offset) {
				got += r.CallID
			}
			testutil.AssertEqual(t, tt.want, got)
		})
	}
}

func TestSortNewestFirstTieBreak(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []model.CallRecord{
		{CallID: "b", EndedAt: at},
		{CallID: "old", EndedAt: at.Add(-time.Hour)},
		{CallID: "a", EndedAt: at},
	}
	sortNewestFirst(recs)
	testutil.AssertEqual(t, "a", recs[0].CallID)
	testutil.AssertEqual(t, "b", recs[1].CallID)
	testutil.AssertEqual(t, "old", recs[2].CallID)
}
