package analysis

import (
	"context"
	"encoding/json"

	"juris-backend/internal/llm"
	"juris-backend/internal/shared/telemetry"
)

// Reviser asks the judge model for a corrected analysis based on the
// evaluation verdict. A broken revision must never destroy a valid
// baseline, so every failure path returns the original unchanged.
type Reviser struct {
	Client llm.Client
}

// Improve returns a revised analysis, or original when no revision is
// needed or the revision could not be produced.
func (r *Reviser) Improve(ctx context.Context, original Result, verdict *Verdict, clauses []Clause) Result {
	if original.Failed() || verdict == nil || !verdict.NeedsImprovement {
		return original
	}

	prompt := BuildImprovementPrompt(original, *verdict, clauses)
	response, err := r.Client.Generate(ctx, llm.GenerateRequest{
		Prompt:   prompt,
		CacheKey: cacheKey("improvement", prompt),
	})
	if err != nil {
		telemetry.Error("improvement.failed", map[string]any{"error": err.Error()})
		return original
	}

	payload, err := llm.ExtractPayload(response)
	if err != nil {
		telemetry.Warn("improvement.parse_failed", map[string]any{"response_len": len(response)})
		return original
	}
	var improved Result
	if err := json.Unmarshal(payload, &improved); err != nil {
		telemetry.Warn("improvement.parse_failed", map[string]any{"response_len": len(response)})
		return original
	}
	return improved
}
