package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"juris-backend/internal/analysis"
)

func TestPGStoreAppendPartitionsByScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	verdict := &analysis.Verdict{QualityScore: 8}

	mock.ExpectExec("INSERT INTO ledger_records").
		WithArgs(
			sqlmock.AnyArg(), // id
			"run-1",
			"success",
			8,
			sqlmock.AnyArg(), // record json
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	runID, err := store.Append(context.Background(), "run-1", sampleResult(), verdict, sampleClauses())
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if runID != "run-1" {
		t.Fatalf("runID = %q", runID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreUpdateRewritesRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	existing := newRecord("run-1", sampleResult(), &analysis.Verdict{QualityScore: 5}, sampleClauses(), store.now())
	payload, err := json.Marshal(existing)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	mock.ExpectQuery("SELECT record").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(payload))
	mock.ExpectExec("UPDATE ledger_records").
		WithArgs("run-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Update(context.Background(), "run-1", sampleResult())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to report success")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreUpdateCreatesMissingRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)
	skeleton := newRecord("run-x", analysis.Result{}, nil, nil, store.now())
	payload, err := json.Marshal(skeleton)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}

	mock.ExpectQuery("SELECT record").
		WithArgs("run-x").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))
	mock.ExpectExec("INSERT INTO ledger_records").
		WithArgs(sqlmock.AnyArg(), "run-x", "failure", 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT record").
		WithArgs("run-x").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(payload))
	mock.ExpectExec("UPDATE ledger_records").
		WithArgs("run-x", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Update(context.Background(), "run-x", sampleResult())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !ok {
		t.Fatal("expected update to create the missing record")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreStatistics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewPGStore(db)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "success"}).AddRow(10, 7))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(8.2))

	stats, err := store.Statistics(context.Background())
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalRecords != 10 || stats.SuccessCount != 7 || stats.FailureCount != 3 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.SuccessRate != 0.7 {
		t.Fatalf("success rate = %v", stats.SuccessRate)
	}
	if stats.AverageRecentScore != 8.2 {
		t.Fatalf("average recent score = %v", stats.AverageRecentScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
