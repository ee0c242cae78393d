package analysis

import (
	_ "embed"
	"encoding/json"
	"strings"

	"juris-backend/internal/llm"
)

var (
	//go:embed prompts/first_pass.txt
	firstPassTemplate string
	//go:embed prompts/evaluation.txt
	evaluationTemplate string
	//go:embed prompts/improvement.txt
	improvementTemplate string
)

// BuildFirstPassPrompt renders the risk-analysis prompt for the regional
// model.
func BuildFirstPassPrompt(clauses []Clause) string {
	return strings.NewReplacer(
		"{{CLAUSES}}", formatClauses(clauses),
	).Replace(firstPassTemplate)
}

// BuildEvaluationPrompt renders the judge prompt embedding the original
// clauses and the serialized first-pass result.
func BuildEvaluationPrompt(initial Result, clauses []Clause) string {
	return strings.NewReplacer(
		"{{CLAUSES}}", formatClauses(clauses),
		"{{ANALYSIS}}", marshalIndent(initial),
	).Replace(evaluationTemplate)
}

// BuildImprovementPrompt renders the revision prompt embedding the
// clauses, the original analysis and the judge's verdict.
func BuildImprovementPrompt(original Result, verdict Verdict, clauses []Clause) string {
	return strings.NewReplacer(
		"{{CLAUSES}}", formatClauses(clauses),
		"{{ANALYSIS}}", marshalIndent(original),
		"{{EVALUATION}}", marshalIndent(verdict),
	).Replace(improvementTemplate)
}

func formatClauses(clauses []Clause) string {
	var b strings.Builder
	for _, clause := range clauses {
		b.WriteString(clause.ID)
		b.WriteString(": ")
		b.WriteString(clause.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// cacheKey builds a stage-prefixed, content-derived cache key so repeated
// analyses of identical input reuse responses across runs while the three
// pipeline stages never collide.
func cacheKey(stage, prompt string) string {
	return stage + "_" + llm.HashPrompt(prompt)
}
