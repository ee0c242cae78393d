package analysis

import "fmt"

// DefaultBatchSize is the clause count above which batching kicks in.
const DefaultBatchSize = 3

// SplitBatches groups clauses into consecutive groups of at most size,
// covering all clauses exactly once in their original order.
func SplitBatches(clauses []Clause, size int) [][]Clause {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]Clause, 0, (len(clauses)+size-1)/size)
	for start := 0; start < len(clauses); start += size {
		end := start + size
		if end > len(clauses) {
			end = len(clauses)
		}
		batches = append(batches, clauses[start:end])
	}
	return batches
}

// MergeResults combines per-group results in group order: findings are
// concatenated, severity counts summed, and the overall assessment
// regenerated from the totals. Groups that failed are dropped from the
// findings but counted in FailedBatches so the loss stays visible. When
// every group failed the merged result itself signals an error.
func MergeResults(results []Result) Result {
	merged := Result{
		Analysis:     make([]ClauseAnalysis, 0),
		TotalBatches: len(results),
	}

	for _, r := range results {
		if r.Failed() {
			merged.FailedBatches++
			continue
		}
		merged.Analysis = append(merged.Analysis, r.Analysis...)
		merged.Summary.HighRisksCount += r.Summary.HighRisksCount
		merged.Summary.MediumRisksCount += r.Summary.MediumRisksCount
		merged.Summary.LowRisksCount += r.Summary.LowRisksCount
	}

	if len(results) > 0 && merged.FailedBatches == len(results) {
		merged.Err = fmt.Sprintf("all %d batches failed", len(results))
		return merged
	}

	merged.Summary.OverallRiskAssessment = overallAssessment(merged.Summary)
	return merged
}

func overallAssessment(s Summary) string {
	level := "低"
	switch {
	case s.HighRisksCount > 0:
		level = "高"
	case s.MediumRisksCount > 0:
		level = "中"
	}
	return fmt.Sprintf("此合約共有%d個高風險項、%d個中風險項和%d個低風險項，整體風險等級為%s級。",
		s.HighRisksCount, s.MediumRisksCount, s.LowRisksCount, level)
}
