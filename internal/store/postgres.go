package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS calls (
	call_id             TEXT PRIMARY KEY,
	started_at          TIMESTAMPTZ,
	ended_at            TIMESTAMPTZ NOT NULL,
	verified            BOOLEAN,
	load_id             TEXT,
	loadboard_rate      DOUBLE PRECISION,
	rounds              INTEGER,
	carrier_first_offer DOUBLE PRECISION,
	carrier_last_offer  DOUBLE PRECISION,
	final_offer         DOUBLE PRECISION,
	agreed              BOOLEAN NOT NULL DEFAULT FALSE,
	transfer_to_rep     BOOLEAN NOT NULL DEFAULT FALSE,
	outcome             TEXT NOT NULL,
	sentiment           TEXT,
	summary_text        TEXT,
	raw_outcome         TEXT,
	raw_summary         JSONB
);
CREATE INDEX IF NOT EXISTS calls_ended_at_idx ON calls (ended_at DESC);
`

const recordColumns = `call_id, started_at, ended_at, verified, load_id, loadboard_rate, rounds,
	carrier_first_offer, carrier_last_offer, final_offer, agreed, transfer_to_rep, outcome,
	sentiment, summary_text, raw_outcome, raw_summary`

// PostgresStore keeps call records in the calls table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and creates the schema when
// missing.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	rawSummary, err := marshalSummary(rec.RawSummary)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO calls (`+recordColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (call_id) DO UPDATE SET
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
`, rec.CallID, rec.StartedAt, rec.EndedAt, rec.Verified, rec.LoadID, rec.LoadboardRate, rec.Rounds,
		rec.CarrierFirstOffer, rec.CarrierLastOffer, rec.FinalOffer, rec.Agreed, rec.TransferToRep,
		string(rec.Outcome), rec.Sentiment, rec.SummaryText, rec.RawOutcome, rawSummary)
	if err != nil {
		return fmt.Errorf("upsert call record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, callID string) (model.CallRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM calls WHERE call_id = $1`, callID)
	rec, err := scanPostgresRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CallRecord{}, fmt.Errorf("call record %s: %w", callID, model.ErrNotFound)
		}
		return model.CallRecord{}, fmt.Errorf("get call record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]model.CallRecord, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM calls`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count call records: %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	// LIMIT NULL means no limit
	var lim any
	if limit > 0 {
		lim = limit
	}
	recs, err := s.query(ctx, `SELECT `+recordColumns+` FROM calls ORDER BY ended_at DESC, call_id LIMIT $1 OFFSET $2`, lim, offset)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]model.CallRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM calls ORDER BY ended_at DESC, call_id`)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]model.CallRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	recs := make([]model.CallRecord, 0)
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresRecord(row pgx.Row) (model.CallRecord, error) {
	var (
		rec        model.CallRecord
		outcome    string
		rawOutcome *string
		rawSummary []byte
	)
	err := row.Scan(&rec.CallID, &rec.StartedAt, &rec.EndedAt, &rec.Verified, &rec.LoadID, &rec.LoadboardRate,
		&rec.Rounds, &rec.CarrierFirstOffer, &rec.CarrierLastOffer, &rec.FinalOffer, &rec.Agreed,
		&rec.TransferToRep, &outcome, &rec.Sentiment, &rec.SummaryText, &rawOutcome, &rawSummary)
	if err != nil {
		return model.CallRecord{}, err
	}
	rec.Outcome = model.Outcome(outcome)
	if rawOutcome != nil {
		rec.RawOutcome = *rawOutcome
	}
	if rec.RawSummary, err = unmarshalSummary(rawSummary); err != nil {
		return model.CallRecord{}, err
	}
	if rec.StartedAt != nil {
		t := rec.StartedAt.UTC()
		rec.StartedAt = &t
	}
	rec.EndedAt = rec.EndedAt.UTC()
	return rec, nil
}

// marshalSummary encodes the raw summary for a JSON column; an empty summary
// is stored as NULL.
func marshalSummary(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode raw_summary: %w", err)
	}
	return b, nil
}

func unmarshalSummary(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode raw_summary: %w", err)
	}
	return m, nil
}
