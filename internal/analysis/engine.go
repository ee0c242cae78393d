package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"juris-backend/internal/llm"
	"juris-backend/internal/shared/metrics"
	"juris-backend/internal/shared/telemetry"
)

// Ledger is the durable record of analysis interactions. Writes are
// best-effort from the pipeline's perspective: failures are logged and
// swallowed, never rolled back.
type Ledger interface {
	Append(ctx context.Context, runID string, initial Result, evaluation *Verdict, clauses []Clause) (string, error)
	Update(ctx context.Context, runID string, improved Result) (bool, error)
}

// Defaults are the engine-level pipeline options, overridable per run.
type Defaults struct {
	UseEvaluation      bool
	UseImprovement     bool
	UseBatchProcessing bool
	BatchSize          int
}

// Engine coordinates the two model backends through the
// analyze -> evaluate -> improve pipeline. One Engine serves all runs;
// each run is an independent task sharing only the caches and the ledger.
type Engine struct {
	FirstPass *llm.Cached
	Judge     *llm.Cached
	Ledger    Ledger
	Defaults  Defaults
	// Throttle is passed to the batch runner; zero means the default
	// inter-batch pause, negative disables it.
	Throttle time.Duration
}

// AnalyzeContract is the pipeline entry point. It always returns a fully
// assembled Run; expected failures surface as Status/Error fields, and
// only programming errors escape (converted to an error run by the
// recover guard).
func (e *Engine) AnalyzeContract(ctx context.Context, clauses []Clause, opts Options) (run Run) {
	useEvaluation := boolOption(opts.UseEvaluation, e.Defaults.UseEvaluation)
	useImprovement := boolOption(opts.UseImprovement, e.Defaults.UseImprovement)
	useBatching := boolOption(opts.UseBatchProcessing, e.Defaults.UseBatchProcessing)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = e.Defaults.BatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	started := time.Now().UTC()
	runID := newRunID(started)

	defer func() {
		if r := recover(); r != nil {
			run = e.errorRun(runID, started, len(clauses), ErrorCodeInternal, fmt.Sprintf("panic: %v", r))
		}
	}()

	if opts.IgnoreCache {
		// Scoped cache bypass: restored unconditionally when the run ends,
		// including on panic.
		prevFirstPass := e.FirstPass.SetEnabled(false)
		prevJudge := e.Judge.SetEnabled(false)
		defer func() {
			e.FirstPass.SetEnabled(prevFirstPass)
			e.Judge.SetEnabled(prevJudge)
		}()
	}

	if len(clauses) == 0 {
		return e.errorRun(runID, started, 0, ErrorCodeValidation, ErrNoClauses.Error())
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{
		"analysis_id":   runID,
		"clauses_count": len(clauses),
		"batching":      useBatching && len(clauses) > batchSize,
	})

	analyzer := &Analyzer{Client: e.FirstPass, Throttle: e.Throttle}

	var initial Result
	var err error
	if useBatching && len(clauses) > batchSize {
		initial, err = analyzer.AnalyzeBatched(ctx, clauses, batchSize)
	} else {
		initial, err = analyzer.Analyze(ctx, clauses)
	}
	if err != nil {
		// First-pass failures are fatal: no meaningful analysis exists to
		// evaluate. No ledger entry is written.
		return e.errorRun(runID, started, len(clauses), errorCode(err), err.Error())
	}
	if initial.Failed() {
		run = e.errorRun(runID, started, len(clauses), ErrorCodeUpstream, initial.Err)
		run.InitialResult = &initial
		return run
	}

	if !useEvaluation {
		e.recordCompleted(started, false)
		return Run{
			ID:            runID,
			Status:        StatusSuccess,
			InitialResult: &initial,
			Metadata:      e.metadata(started, len(clauses), false, false, 0),
		}
	}

	gate := &Gate{Client: e.Judge}
	verdict := gate.Evaluate(ctx, initial, clauses)

	// The interaction is recorded once evaluated, regardless of verdict.
	if e.Ledger != nil {
		if _, err := e.Ledger.Append(ctx, runID, initial, &verdict, clauses); err != nil {
			telemetry.Error("ledger.append_failed", map[string]any{
				"analysis_id": runID,
				"error":       err.Error(),
			})
		}
	}

	if !useImprovement || !verdict.NeedsImprovement {
		e.recordCompleted(started, false)
		telemetry.Info("analysis.completed", map[string]any{
			"analysis_id":   runID,
			"quality_score": verdict.QualityScore,
			"improved":      false,
		})
		return Run{
			ID:            runID,
			Status:        StatusSuccess,
			InitialResult: &initial,
			Evaluation:    &verdict,
			Metadata:      e.metadata(started, len(clauses), true, false, verdict.QualityScore),
		}
	}

	reviser := &Reviser{Client: e.Judge}
	improved := reviser.Improve(ctx, initial, &verdict, clauses)

	if e.Ledger != nil {
		if _, err := e.Ledger.Update(ctx, runID, improved); err != nil {
			telemetry.Error("ledger.update_failed", map[string]any{
				"analysis_id": runID,
				"error":       err.Error(),
			})
		}
	}

	e.recordCompleted(started, true)
	telemetry.Info("analysis.completed", map[string]any{
		"analysis_id":      runID,
		"quality_score":    verdict.QualityScore,
		"improved":         true,
		"duration_seconds": time.Since(started).Seconds(),
	})
	return Run{
		ID:             runID,
		Status:         StatusSuccess,
		InitialResult:  &initial,
		Evaluation:     &verdict,
		ImprovedResult: &improved,
		Metadata:       e.metadata(started, len(clauses), true, true, verdict.QualityScore),
	}
}

func (e *Engine) metadata(started time.Time, clausesCount int, usedEvaluation, usedImprovement bool, score int) Metadata {
	return Metadata{
		DurationSeconds: time.Since(started).Seconds(),
		ClausesCount:    clausesCount,
		UsedEvaluation:  usedEvaluation,
		UsedImprovement: usedImprovement,
		QualityScore:    score,
		StartedAt:       started,
	}
}

func (e *Engine) recordCompleted(started time.Time, improved bool) {
	metrics.IncAnalysisCompleted()
	if improved {
		metrics.IncAnalysisImproved()
	}
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
}

func (e *Engine) errorRun(runID string, started time.Time, clausesCount int, code, message string) Run {
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Error("analysis.failed", map[string]any{
		"analysis_id":      runID,
		"error_code":       code,
		"error":            message,
		"duration_seconds": time.Since(started).Seconds(),
	})
	return Run{
		ID:        runID,
		Status:    StatusError,
		Error:     message,
		ErrorCode: code,
		Metadata:  e.metadata(started, clausesCount, false, false, 0),
	}
}

// newRunID derives an opaque, time-ordered identifier from the run start.
// Nanosecond resolution keeps concurrent runs on disjoint ids.
func newRunID(started time.Time) string {
	return "analysis_" + strconv.FormatInt(started.UnixNano(), 10)
}

func errorCode(err error) string {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return ErrorCodeUpstream
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCodeUpstream
	}
	return ErrorCodeInternal
}

func boolOption(override *bool, def bool) bool {
	if override != nil {
		return *override
	}
	return def
}
