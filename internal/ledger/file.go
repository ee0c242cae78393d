package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"juris-backend/internal/analysis"
)

const (
	successDirName = "success"
	failureDirName = "failure"
)

// FileStore keeps one JSON file per record under <dir>/success and
// <dir>/failure. Writes go through a temp file and rename so a crash
// never leaves a half-written record behind.
type FileStore struct {
	successDir string
	failureDir string
	now        func() time.Time
}

// NewFileStore creates the partition directories if needed.
func NewFileStore(dir string) (*FileStore, error) {
	store := &FileStore{
		successDir: filepath.Join(dir, successDirName),
		failureDir: filepath.Join(dir, failureDirName),
		now:        time.Now,
	}
	for _, d := range []string{store.successDir, store.failureDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir %s: %w", d, err)
		}
	}
	return store, nil
}

// Append writes a record for this run and returns its id.
func (s *FileStore) Append(ctx context.Context, runID string, initial analysis.Result, evaluation *analysis.Verdict, clauses []analysis.Clause) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	record := newRecord(runID, initial, evaluation, clauses, s.now())
	if err := s.write(record, isSuccess(evaluation)); err != nil {
		return "", err
	}
	return runID, nil
}

// Update attaches an improved result to an existing record. A record
// that was never appended is created in the failure partition so the
// improvement is not lost.
func (s *FileStore) Update(ctx context.Context, runID string, improved analysis.Result) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	record, success, found, err := s.load(runID)
	if err != nil {
		return false, err
	}
	if !found {
		record = newRecord(runID, analysis.Result{}, nil, nil, s.now())
		success = false
	}
	improvedAt := s.now()
	record.ImprovedAnalysis = &improved
	record.Metadata.ImprovedAt = &improvedAt
	if err := s.write(record, success); err != nil {
		return false, err
	}
	return true, nil
}

// RecentSuccesses returns up to limit success records, newest first.
func (s *FileStore) RecentSuccesses(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.recent(s.successDir, limit)
}

// RecentFailures returns up to limit failure records, newest first.
func (s *FileStore) RecentFailures(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.recent(s.failureDir, limit)
}

// Statistics counts both partitions and averages the five most recent
// success scores.
func (s *FileStore) Statistics(ctx context.Context) (Statistics, error) {
	if err := ctx.Err(); err != nil {
		return Statistics{}, err
	}
	successCount, err := countRecords(s.successDir)
	if err != nil {
		return Statistics{}, err
	}
	failureCount, err := countRecords(s.failureDir)
	if err != nil {
		return Statistics{}, err
	}
	stats := Statistics{
		TotalRecords: successCount + failureCount,
		SuccessCount: successCount,
		FailureCount: failureCount,
		Timestamp:    s.now(),
	}
	if stats.TotalRecords > 0 {
		stats.SuccessRate = float64(successCount) / float64(stats.TotalRecords)
	}
	recent, err := s.recent(s.successDir, 5)
	if err != nil {
		return Statistics{}, err
	}
	if len(recent) > 0 {
		total := 0
		for _, r := range recent {
			total += r.Metadata.QualityScore
		}
		stats.AverageRecentScore = float64(total) / float64(len(recent))
	}
	return stats, nil
}

func (s *FileStore) write(record Record, success bool) error {
	dir := s.failureDir
	if success {
		dir = s.successDir
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger record: %w", err)
	}
	path := filepath.Join(dir, record.ID+".json")
	tmp, err := os.CreateTemp(dir, record.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

func (s *FileStore) load(runID string) (Record, bool, bool, error) {
	for _, probe := range []struct {
		dir     string
		success bool
	}{{s.successDir, true}, {s.failureDir, false}} {
		path := filepath.Join(probe.dir, runID+".json")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Record{}, false, false, fmt.Errorf("read record %s: %w", runID, err)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return Record{}, false, false, fmt.Errorf("decode record %s: %w", runID, err)
		}
		return record, probe.success, true, nil
	}
	return Record{}, false, false, nil
}

func (s *FileStore) recent(dir string, limit int) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list ledger dir %s: %w", dir, err)
	}
	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read record %s: %w", entry.Name(), err)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func countRecords(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list ledger dir %s: %w", dir, err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			count++
		}
	}
	return count, nil
}
