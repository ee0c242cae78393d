// Package analysis implements the dual-model contract review pipeline:
// a first-pass risk analysis by the regional model, a quality verdict by
// the judge model, and an optional revision pass driven by that verdict.
package analysis

import "time"

// Run terminal statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Clause is a discrete, separately addressable unit of contract text.
// Produced by the document splitter; immutable once created.
type Clause struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	ParentID      string `json:"parent_id,omitempty"`
	HasSubClauses bool   `json:"has_sub_clauses,omitempty"`
}

// RiskFinding is one identified legal risk within a clause.
type RiskFinding struct {
	RiskDescription string `json:"risk_description"`
	Severity        string `json:"severity"`
	LegalBasis      string `json:"legal_basis"`
	Recommendation  string `json:"recommendation"`
}

// ClauseAnalysis groups the findings for one clause, in clause order.
type ClauseAnalysis struct {
	ClauseID   string        `json:"clause_id"`
	ClauseText string        `json:"clause_text,omitempty"`
	Risks      []RiskFinding `json:"risks"`
}

// Summary aggregates severity counts across a result.
type Summary struct {
	HighRisksCount        int    `json:"high_risks_count"`
	MediumRisksCount      int    `json:"medium_risks_count"`
	LowRisksCount         int    `json:"low_risks_count"`
	OverallRiskAssessment string `json:"overall_risk_assessment"`
}

// Result is the outcome of one model pass over a clause set. A pass either
// produced findings or carries Err; both shapes flow through the pipeline
// as values rather than exceptions.
type Result struct {
	Analysis []ClauseAnalysis `json:"analysis"`
	Summary  Summary          `json:"summary"`

	// Batch bookkeeping. Failed groups are dropped from Analysis but the
	// loss is surfaced here, never silently absorbed.
	TotalBatches  int `json:"total_batches,omitempty"`
	FailedBatches int `json:"failed_batches,omitempty"`

	Err         string `json:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// Failed reports whether this pass produced no usable analysis.
func (r Result) Failed() bool { return r.Err != "" }

// MissingRisk is a judge-identified risk absent from the first pass.
type MissingRisk struct {
	ClauseID        string `json:"clause_id"`
	RiskDescription string `json:"risk_description"`
	Severity        string `json:"severity"`
}

// Verdict is the judge model's structured quality assessment of a
// first-pass result. QualityScore is 1–10; 0 means evaluation could not
// be performed.
type Verdict struct {
	QualityScore           int           `json:"quality_score"`
	Feedback               string        `json:"feedback"`
	MissingRisks           []MissingRisk `json:"missing_risks,omitempty"`
	ImprovementSuggestions string        `json:"improvement_suggestions,omitempty"`
	NeedsImprovement       bool          `json:"needs_improvement"`
	RawResponse            string        `json:"raw_response,omitempty"`
}

// Options control a single pipeline run. Nil pointer fields fall back to
// the engine defaults.
type Options struct {
	UseEvaluation      *bool `json:"use_evaluation,omitempty"`
	UseImprovement     *bool `json:"use_improvement,omitempty"`
	UseBatchProcessing *bool `json:"use_batch_processing,omitempty"`
	BatchSize          int   `json:"batch_size,omitempty"`
	IgnoreCache        bool  `json:"ignore_cache,omitempty"`
}

// Metadata describes how a run executed.
type Metadata struct {
	DurationSeconds float64   `json:"duration_seconds"`
	ClausesCount    int       `json:"clauses_count"`
	UsedEvaluation  bool      `json:"used_evaluation"`
	UsedImprovement bool      `json:"used_improvement"`
	QualityScore    int       `json:"quality_score,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

// Run is the assembled record of one end-to-end pipeline execution. Error
// state is a field, not an exception: callers always receive a Run.
type Run struct {
	ID             string   `json:"analysis_id"`
	Status         string   `json:"status"`
	InitialResult  *Result  `json:"initial_result,omitempty"`
	Evaluation     *Verdict `json:"evaluation,omitempty"`
	ImprovedResult *Result  `json:"improved_result,omitempty"`
	Error          string   `json:"error,omitempty"`
	ErrorCode      string   `json:"error_code,omitempty"`
	Metadata       Metadata `json:"metadata"`
}

// FinalResult returns the best available analysis: the revision when one
// was produced, otherwise the first pass.
func (r Run) FinalResult() *Result {
	if r.ImprovedResult != nil {
		return r.ImprovedResult
	}
	return r.InitialResult
}
