package analysis

import (
	"context"
	"encoding/json"
	"time"

	"juris-backend/internal/llm"
	"juris-backend/internal/shared/telemetry"
)

// DefaultBatchThrottle is the pause between consecutive batch calls. It is
// a deliberate throttle against upstream rate limits, not error recovery.
const DefaultBatchThrottle = time.Second

// Analyzer produces the first-pass risk analysis with the regional model.
type Analyzer struct {
	Client llm.Client
	// Throttle overrides DefaultBatchThrottle when non-zero; tests set it
	// negative to disable the pause.
	Throttle time.Duration
}

// Analyze runs a single unbatched analysis over the clause set.
// Upstream failures come back as an error (fatal to the run); a response
// that cannot be parsed comes back as an error-valued Result.
func (a *Analyzer) Analyze(ctx context.Context, clauses []Clause) (Result, error) {
	prompt := BuildFirstPassPrompt(clauses)

	response, err := a.Client.Generate(ctx, llm.GenerateRequest{
		Prompt:   prompt,
		CacheKey: cacheKey("contract", prompt),
	})
	if err != nil {
		return Result{}, err
	}

	payload, err := llm.ExtractPayload(response)
	if err != nil {
		return parseFailure(response), nil
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return parseFailure(response), nil
	}
	return result, nil
}

// AnalyzeBatched splits the clauses into groups of batchSize and analyzes
// them strictly in input order, pausing between groups. Parse failures in
// individual groups are dropped during merge (and surfaced via
// FailedBatches); an upstream failure aborts the whole pass.
func (a *Analyzer) AnalyzeBatched(ctx context.Context, clauses []Clause, batchSize int) (Result, error) {
	batches := SplitBatches(clauses, batchSize)
	telemetry.Info("analysis.batching", map[string]any{
		"clauses_count": len(clauses),
		"batch_size":    batchSize,
		"batches":       len(batches),
	})

	results := make([]Result, 0, len(batches))
	for i, batch := range batches {
		result, err := a.Analyze(ctx, batch)
		if err != nil {
			return Result{}, err
		}
		if result.Failed() {
			telemetry.Warn("analysis.batch_failed", map[string]any{
				"batch":   i + 1,
				"batches": len(batches),
				"error":   result.Err,
			})
		}
		results = append(results, result)

		if i < len(batches)-1 {
			if err := a.pause(ctx); err != nil {
				return Result{}, err
			}
		}
	}

	return MergeResults(results), nil
}

func (a *Analyzer) pause(ctx context.Context) error {
	throttle := a.Throttle
	if throttle == 0 {
		throttle = DefaultBatchThrottle
	}
	if throttle < 0 {
		return nil
	}
	select {
	case <-time.After(throttle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseFailure(response string) Result {
	return Result{
		Err:         "無法解析模型回應為JSON格式",
		RawResponse: response,
	}
}
