package analysis

import (
	"context"
	"errors"
	"testing"

	"juris-backend/internal/llm"
)

type fakeClient struct {
	calls     int
	responses []string
	err       error
}

func (f *fakeClient) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	_ = ctx
	_ = req
	idx := f.calls
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func sampleClauses() []Clause {
	return []Clause{{ID: "第一條", Text: "甲方可在任何時間單方面終止合約"}}
}

func validResult() Result {
	return Result{
		Analysis: []ClauseAnalysis{{
			ClauseID: "第一條",
			Risks: []RiskFinding{{
				RiskDescription: "條款高度不平等",
				Severity:        "高",
				LegalBasis:      "民法第247條之1",
				Recommendation:  "修改為雙方均需提前通知",
			}},
		}},
		Summary: Summary{HighRisksCount: 1, OverallRiskAssessment: "高風險"},
	}
}

func TestEvaluateShortCircuitsOnFailedResult(t *testing.T) {
	client := &fakeClient{responses: []string{"{}"}}
	gate := &Gate{Client: client}

	verdict := gate.Evaluate(context.Background(), Result{Err: "x"}, sampleClauses())

	if verdict.QualityScore != 0 || !verdict.NeedsImprovement {
		t.Fatalf("got %+v, want score 0 and needs_improvement", verdict)
	}
	if client.calls != 0 {
		t.Fatalf("model must not be invoked, got %d calls", client.calls)
	}
}

func TestEvaluateShortCircuitsOnEmptyClauses(t *testing.T) {
	client := &fakeClient{responses: []string{"{}"}}
	gate := &Gate{Client: client}

	verdict := gate.Evaluate(context.Background(), validResult(), nil)

	if verdict.QualityScore != 0 || verdict.NeedsImprovement {
		t.Fatalf("got %+v, want score 0 without improvement", verdict)
	}
	if client.calls != 0 {
		t.Fatalf("model must not be invoked, got %d calls", client.calls)
	}
}

func TestEvaluateParsesVerdict(t *testing.T) {
	client := &fakeClient{responses: []string{
		`評估如下: {"quality_score": 4, "feedback": "遺漏風險", "needs_improvement": true}`,
	}}
	gate := &Gate{Client: client}

	verdict := gate.Evaluate(context.Background(), validResult(), sampleClauses())

	if verdict.QualityScore != 4 || !verdict.NeedsImprovement {
		t.Fatalf("got %+v", verdict)
	}
	if verdict.Feedback != "遺漏風險" {
		t.Fatalf("feedback lost: %q", verdict.Feedback)
	}
}

func TestEvaluateParseFailureDegrades(t *testing.T) {
	client := &fakeClient{responses: []string{"這份分析整體來說相當不錯。"}}
	gate := &Gate{Client: client}

	verdict := gate.Evaluate(context.Background(), validResult(), sampleClauses())

	if verdict.QualityScore != 5 || !verdict.NeedsImprovement {
		t.Fatalf("got %+v, want degraded verdict score 5", verdict)
	}
	if verdict.RawResponse == "" {
		t.Fatalf("raw response must be preserved for inspection")
	}
}

func TestEvaluateUpstreamFailureIsNonFatal(t *testing.T) {
	client := &fakeClient{err: errors.New("judge unavailable")}
	gate := &Gate{Client: client}

	verdict := gate.Evaluate(context.Background(), validResult(), sampleClauses())

	if verdict.QualityScore != 0 {
		t.Fatalf("got score %d, want 0", verdict.QualityScore)
	}
	if verdict.NeedsImprovement {
		t.Fatalf("a failed evaluation must not trigger a revision pass")
	}
}
