package analysis

import "errors"

// ErrNoClauses rejects a run with an empty clause list.
var ErrNoClauses = errors.New("no clauses to analyze")

// Error codes attached to failed runs. The HTTP layer maps them to status
// codes; the pipeline itself never throws for expected failure modes.
const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeUpstream   = "UPSTREAM_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
