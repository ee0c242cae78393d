// Package ledger persists each analysis run's inputs, outputs and judge
// feedback for offline inspection and future tuning. Records are
// partitioned by outcome: verdicts scoring 7 or above land in the success
// partition, everything else in failure.
package ledger

import (
	"context"
	"time"

	"juris-backend/internal/analysis"
)

// SuccessScoreThreshold separates success records from failure records.
const SuccessScoreThreshold = 7

// Store is the full ledger surface: the pipeline-facing writes plus the
// read side used by the stats endpoint.
type Store interface {
	analysis.Ledger
	RecentSuccesses(ctx context.Context, limit int) ([]Record, error)
	RecentFailures(ctx context.Context, limit int) ([]Record, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// Record is one persisted analysis interaction.
type Record struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	Clauses          []analysis.Clause `json:"clauses,omitempty"`
	InitialAnalysis  analysis.Result   `json:"initial_analysis"`
	Evaluation       *analysis.Verdict `json:"evaluation,omitempty"`
	ImprovedAnalysis *analysis.Result  `json:"improved_analysis,omitempty"`
	Metadata         RecordMetadata    `json:"metadata"`
}

// RecordMetadata carries the indexed fields of a record.
type RecordMetadata struct {
	ClausesCount     int        `json:"clauses_count"`
	QualityScore     int        `json:"quality_score,omitempty"`
	NeedsImprovement bool       `json:"needs_improvement,omitempty"`
	ImprovedAt       *time.Time `json:"improved_at,omitempty"`
}

// Statistics summarizes the ledger contents.
type Statistics struct {
	TotalRecords       int       `json:"total_records"`
	SuccessCount       int       `json:"success_count"`
	FailureCount       int       `json:"failure_count"`
	SuccessRate        float64   `json:"success_rate"`
	AverageRecentScore float64   `json:"average_recent_score"`
	Timestamp          time.Time `json:"timestamp"`
}

// isSuccess applies the partition rule.
func isSuccess(evaluation *analysis.Verdict) bool {
	return evaluation != nil && evaluation.QualityScore >= SuccessScoreThreshold
}

func newRecord(runID string, initial analysis.Result, evaluation *analysis.Verdict, clauses []analysis.Clause, now time.Time) Record {
	record := Record{
		ID:              runID,
		Timestamp:       now,
		Clauses:         clauses,
		InitialAnalysis: initial,
		Evaluation:      evaluation,
		Metadata: RecordMetadata{
			ClausesCount: len(clauses),
		},
	}
	if evaluation != nil {
		record.Metadata.QualityScore = evaluation.QualityScore
		record.Metadata.NeedsImprovement = evaluation.NeedsImprovement
	}
	return record
}
