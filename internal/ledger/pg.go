package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"juris-backend/internal/analysis"
)

// PGStore persists records in Postgres. The whole record travels as
// JSONB; outcome, quality_score and the timestamps are lifted into
// columns so the stats queries stay cheap.
type PGStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewPGStore wraps an open connection pool.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db, now: time.Now}
}

func (s *PGStore) Append(ctx context.Context, runID string, initial analysis.Result, evaluation *analysis.Verdict, clauses []analysis.Clause) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	record := newRecord(runID, initial, evaluation, clauses, s.now())
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal ledger record: %w", err)
	}
	const query = `
INSERT INTO ledger_records (id, run_id, outcome, quality_score, record, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id) DO UPDATE SET
  outcome = EXCLUDED.outcome,
  quality_score = EXCLUDED.quality_score,
  record = EXCLUDED.record`
	_, err = s.DB.ExecContext(ctx, query,
		uuid.NewString(),
		runID,
		outcome(evaluation),
		record.Metadata.QualityScore,
		payload,
		record.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("insert ledger record: %w", err)
	}
	return runID, nil
}

func (s *PGStore) Update(ctx context.Context, runID string, improved analysis.Result) (bool, error) {
	const selectQuery = `
SELECT record
FROM ledger_records
WHERE run_id = $1
LIMIT 1`
	var payload []byte
	err := s.DB.QueryRowContext(ctx, selectQuery, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		if _, appendErr := s.Append(ctx, runID, analysis.Result{}, nil, nil); appendErr != nil {
			return false, appendErr
		}
		return s.Update(ctx, runID, improved)
	}
	if err != nil {
		return false, fmt.Errorf("load ledger record %s: %w", runID, err)
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return false, fmt.Errorf("decode ledger record %s: %w", runID, err)
	}
	improvedAt := s.now()
	record.ImprovedAnalysis = &improved
	record.Metadata.ImprovedAt = &improvedAt
	updated, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal ledger record: %w", err)
	}
	const updateQuery = `
UPDATE ledger_records
SET record = $2, improved_at = $3
WHERE run_id = $1`
	if _, err := s.DB.ExecContext(ctx, updateQuery, runID, updated, improvedAt); err != nil {
		return false, fmt.Errorf("update ledger record %s: %w", runID, err)
	}
	return true, nil
}

func (s *PGStore) RecentSuccesses(ctx context.Context, limit int) ([]Record, error) {
	return s.recent(ctx, "success", limit)
}

func (s *PGStore) RecentFailures(ctx context.Context, limit int) ([]Record, error) {
	return s.recent(ctx, "failure", limit)
}

func (s *PGStore) Statistics(ctx context.Context) (Statistics, error) {
	const countQuery = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE outcome = 'success')
FROM ledger_records`
	stats := Statistics{Timestamp: s.now()}
	err := s.DB.QueryRowContext(ctx, countQuery).Scan(&stats.TotalRecords, &stats.SuccessCount)
	if err != nil {
		return Statistics{}, fmt.Errorf("count ledger records: %w", err)
	}
	stats.FailureCount = stats.TotalRecords - stats.SuccessCount
	if stats.TotalRecords > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRecords)
	}
	const recentQuery = `
SELECT COALESCE(AVG(quality_score), 0)
FROM (
  SELECT quality_score
  FROM ledger_records
  WHERE outcome = 'success'
  ORDER BY created_at DESC
  LIMIT 5
) recent`
	if err := s.DB.QueryRowContext(ctx, recentQuery).Scan(&stats.AverageRecentScore); err != nil {
		return Statistics{}, fmt.Errorf("average recent scores: %w", err)
	}
	return stats, nil
}

func (s *PGStore) recent(ctx context.Context, outcome string, limit int) ([]Record, error) {
	const query = `
SELECT record
FROM ledger_records
WHERE outcome = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, outcome, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", outcome, err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func outcome(evaluation *analysis.Verdict) string {
	if isSuccess(evaluation) {
		return "success"
	}
	return "failure"
}
