package analysis

import (
	"context"
	"encoding/json"

	"juris-backend/internal/llm"
	"juris-backend/internal/shared/telemetry"
)

// Gate asks the judge model for a quality verdict on a first-pass result
// and decides whether a revision pass is warranted. Evaluation failures
// never abort the pipeline: every path returns a usable Verdict.
type Gate struct {
	Client llm.Client
}

// Evaluate produces the judge verdict for initial against clauses.
func (g *Gate) Evaluate(ctx context.Context, initial Result, clauses []Clause) Verdict {
	if initial.Failed() {
		return Verdict{
			QualityScore:     0,
			Feedback:         "無法評估，初步分析產生錯誤",
			NeedsImprovement: true,
		}
	}
	if len(clauses) == 0 {
		return Verdict{
			QualityScore:     0,
			Feedback:         "無法評估，未提供合同條款",
			NeedsImprovement: false,
		}
	}

	prompt := BuildEvaluationPrompt(initial, clauses)
	response, err := g.Client.Generate(ctx, llm.GenerateRequest{
		Prompt:   prompt,
		CacheKey: cacheKey("evaluation", prompt),
	})
	if err != nil {
		// Non-fatal: the run keeps its first-pass result. No verdict means
		// no revision, so NeedsImprovement stays false.
		telemetry.Error("evaluation.failed", map[string]any{"error": err.Error()})
		return Verdict{
			QualityScore:     0,
			Feedback:         "評估失敗: " + err.Error(),
			NeedsImprovement: false,
		}
	}

	verdict, ok := parseVerdict(response)
	if !ok {
		telemetry.Warn("evaluation.parse_failed", map[string]any{
			"response_len": len(response),
		})
		return Verdict{
			QualityScore:     5,
			Feedback:         "無法解析評估結果為JSON格式，但已完成評估",
			NeedsImprovement: true,
			RawResponse:      response,
		}
	}
	return verdict
}

func parseVerdict(response string) (Verdict, bool) {
	payload, err := llm.ExtractPayload(response)
	if err != nil {
		return Verdict{}, false
	}
	var verdict Verdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return Verdict{}, false
	}
	return verdict, true
}
