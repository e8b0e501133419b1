package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

type migration struct {
	Version int
	UpSQL   string
}

var sqliteMigrations = []migration{
	{
		Version: 1,
		UpSQL: `
CREATE TABLE IF NOT EXISTS calls (
	call_id             TEXT PRIMARY KEY,
	started_at          TEXT,
	ended_at            TEXT NOT NULL,
	verified            INTEGER,
	load_id             TEXT,
	loadboard_rate      REAL,
	rounds              INTEGER,
	carrier_first_offer REAL,
	carrier_last_offer  REAL,
	final_offer         REAL,
	agreed              INTEGER NOT NULL DEFAULT 0,
	transfer_to_rep     INTEGER NOT NULL DEFAULT 0,
	outcome             TEXT NOT NULL,
	sentiment           TEXT,
	summary_text        TEXT,
	raw_outcome         TEXT NOT NULL DEFAULT '',
	raw_summary         TEXT
);
CREATE INDEX IF NOT EXISTS idx_calls_ended_at ON calls(ended_at DESC);
`,
	},
}

// SQLiteStore keeps call records in an embedded SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, m := range sqliteMigrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))`, m.Version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	rawSummary, err := marshalSummary(rec.RawSummary)
	if err != nil {
		return err
	}
	var summary any
	if rawSummary != nil {
		summary = string(rawSummary)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO calls(`+recordColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(call_id) DO UPDATE SET
	started_at=excluded.started_at,
	ended_at=excluded.ended_at,
	verified=excluded.verified,
	load_id=excluded.load_id,
	loadboard_rate=excluded.loadboard_rate,
	rounds=excluded.rounds,
	carrier_first_offer=excluded.carrier_first_offer,
	carrier_last_offer=excluded.carrier_last_offer,
	final_offer=excluded.final_offer,
	agreed=excluded.agreed,
	transfer_to_rep=excluded.transfer_to_rep,
	outcome=excluded.outcome,
	sentiment=excluded.sentiment,
	summary_text=excluded.summary_text,
	raw_outcome=excluded.raw_outcome,
	raw_summary=excluded.raw_summary
`, rec.CallID, nullableTS(rec.StartedAt), ts(rec.EndedAt), nullableBool(rec.Verified), nullable(rec.LoadID),
		nullable(rec.LoadboardRate), nullable(rec.Rounds), nullable(rec.CarrierFirstOffer),
		nullable(rec.CarrierLastOffer), nullable(rec.FinalOffer), boolToInt(rec.Agreed),
		boolToInt(rec.TransferToRep), string(rec.Outcome), nullable(rec.Sentiment),
		nullable(rec.SummaryText), rec.RawOutcome, summary)
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM calls WHERE call_id = ?`, callID)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CallRecord{}, fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
		}
		return model.CallRecord{}, fmt.Errorf("get call record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count call records: %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	// a negative LIMIT means no limit in SQLite
	if limit <= 0 {
		limit = -1
	}
	recs, err := s.query(ctx, `SELECT `+recordColumns+` FROM calls ORDER BY ended_at DESC, call_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]model.CallRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM calls ORDER BY ended_at DESC, call_id`)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]model.CallRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	recs := make([]model.CallRecord, 0)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (model.CallRecord, error) {
	var (
		rec                              model.CallRecord
		startedAt, rawSummary            sql.NullString
		endedAt, outcome                 string
		verified                         sql.NullBool
		loadID, sentiment, summaryText   sql.NullString
		rate, firstOffer, lastOffer, fin sql.NullFloat64
		rounds                           sql.NullInt64
		agreed, transfer                 int
	)
	err := row.Scan(&rec.CallID, &startedAt, &endedAt, &verified, &loadID, &rate, &rounds,
		&firstOffer, &lastOffer, &fin, &agreed, &transfer, &outcome, &sentiment, &summaryText,
		&rec.RawOutcome, &rawSummary)
	if err != nil {
		return model.CallRecord{}, err
	}

	if rec.EndedAt, err = parseTS(endedAt); err != nil {
		return model.CallRecord{}, fmt.Errorf("parse ended_at: %w", err)
	}
	if startedAt.Valid {
		t, err := parseTS(startedAt.String)
		if err != nil {
			return model.CallRecord{}, fmt.Errorf("parse started_at: %w", err)
		}
		rec.StartedAt = &t
	}
	if verified.Valid {
		rec.Verified = &verified.Bool
	}
	if rounds.Valid {
		n := int(rounds.Int64)
		rec.Rounds = &n
	}
	rec.LoadID = nullString(loadID)
	rec.Sentiment = nullString(sentiment)
	rec.SummaryText = nullString(summaryText)
	rec.LoadboardRate = nullFloat(rate)
	rec.CarrierFirstOffer = nullFloat(firstOffer)
	rec.CarrierLastOffer = nullFloat(lastOffer)
	rec.FinalOffer = nullFloat(fin)
	rec.Agreed = agreed != 0
	rec.TransferToRep = transfer != 0
	rec.Outcome = model.Outcome(outcome)
	if rawSummary.Valid {
		if rec.RawSummary, err = unmarshalSummary([]byte(rawSummary.String)); err != nil {
			return model.CallRecord{}, err
		}
	}
	return rec, nil
}

// tsLayout has fixed-width fractional seconds so stored timestamps sort
// lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullableTS(v *time.Time) any {
	if v == nil {
		return nil
	}
	return ts(*v)
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return boolToInt(*v)
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
