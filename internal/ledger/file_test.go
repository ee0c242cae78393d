package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"juris-backend/internal/analysis"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		Analysis: []analysis.ClauseAnalysis{
			{
				ClauseID:   "第一條",
				ClauseText: "甲方可在任何時間單方面終止合約",
				Risks: []analysis.RiskFinding{
					{RiskDescription: "單方終止權利不對等", Severity: "高"},
				},
			},
		},
		Summary: analysis.Summary{HighRisksCount: 1},
	}
}

func sampleClauses() []analysis.Clause {
	return []analysis.Clause{
		{ID: "第一條", Text: "甲方可在任何時間單方面終止合約"},
	}
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStorePartitionsByScore(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	good := &analysis.Verdict{QualityScore: 8}
	if _, err := store.Append(ctx, "run-good", sampleResult(), good, sampleClauses()); err != nil {
		t.Fatalf("Append success: %v", err)
	}
	bad := &analysis.Verdict{QualityScore: 4, NeedsImprovement: true}
	if _, err := store.Append(ctx, "run-bad", sampleResult(), bad, sampleClauses()); err != nil {
		t.Fatalf("Append failure: %v", err)
	}
	if _, err := store.Append(ctx, "run-noeval", sampleResult(), nil, sampleClauses()); err != nil {
		t.Fatalf("Append without evaluation: %v", err)
	}

	if _, err := os.Stat(filepath.Join(store.successDir, "run-good.json")); err != nil {
		t.Fatalf("success record missing: %v", err)
	}
	for _, id := range []string{"run-bad", "run-noeval"} {
		if _, err := os.Stat(filepath.Join(store.failureDir, id+".json")); err != nil {
			t.Fatalf("failure record %s missing: %v", id, err)
		}
	}
}

func TestFileStoreAppendGeneratesID(t *testing.T) {
	store := newTestFileStore(t)

	id, err := store.Append(context.Background(), "", sampleResult(), nil, sampleClauses())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated record id")
	}
	if _, err := os.Stat(filepath.Join(store.failureDir, id+".json")); err != nil {
		t.Fatalf("record missing: %v", err)
	}
}

func TestFileStoreUpdateAttachesImprovedResult(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	verdict := &analysis.Verdict{QualityScore: 5, NeedsImprovement: true}
	if _, err := store.Append(ctx, "run-1", sampleResult(), verdict, sampleClauses()); err != nil {
		t.Fatalf("Append: %v", err)
	}
	improved := sampleResult()
	improved.Summary.MediumRisksCount = 2
	ok, err := store.Update(ctx, "run-1", improved)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to report success")
	}

	record, _, found, err := store.load("run-1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if record.ImprovedAnalysis == nil {
		t.Fatal("improved analysis not stored")
	}
	if record.ImprovedAnalysis.Summary.MediumRisksCount != 2 {
		t.Fatalf("improved summary = %+v", record.ImprovedAnalysis.Summary)
	}
	if record.Metadata.ImprovedAt == nil {
		t.Fatal("improved_at not set")
	}
	if record.Evaluation == nil || record.Evaluation.QualityScore != 5 {
		t.Fatalf("original evaluation lost: %+v", record.Evaluation)
	}
}

func TestFileStoreUpdateCreatesMissingRecord(t *testing.T) {
	store := newTestFileStore(t)

	ok, err := store.Update(context.Background(), "never-appended", sampleResult())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to succeed for a missing record")
	}
	if _, err := os.Stat(filepath.Join(store.failureDir, "never-appended.json")); err != nil {
		t.Fatalf("created record missing: %v", err)
	}
}

func TestFileStoreRecentOrdersNewestFirst(t *testing.T) {
	store := newTestFileStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		verdict := &analysis.Verdict{QualityScore: 9}
		if _, err := store.Append(ctx, id, sampleResult(), verdict, sampleClauses()); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}

	recent, err := store.RecentSuccesses(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSuccesses: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].ID != "run-3" || recent[1].ID != "run-2" {
		t.Fatalf("unexpected order: %s, %s", recent[0].ID, recent[1].ID)
	}
}

func TestFileStoreStatistics(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	scores := []int{8, 9, 7}
	for i, score := range scores {
		verdict := &analysis.Verdict{QualityScore: score}
		runID := "success-" + string(rune('a'+i))
		if _, err := store.Append(ctx, runID, sampleResult(), verdict, sampleClauses()); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	verdict := &analysis.Verdict{QualityScore: 3, NeedsImprovement: true}
	if _, err := store.Append(ctx, "failure-a", sampleResult(), verdict, sampleClauses()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	stats, err := store.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalRecords != 4 || stats.SuccessCount != 3 || stats.FailureCount != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.SuccessRate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", stats.SuccessRate)
	}
	if stats.AverageRecentScore != 8 {
		t.Fatalf("average recent score = %v, want 8", stats.AverageRecentScore)
	}
}
