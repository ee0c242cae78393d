// Package document turns uploaded contract files into the clause sequence
// the analysis pipeline consumes.
package document

import (
	"fmt"
	"regexp"
	"strings"

	"juris-backend/internal/analysis"
)

var (
	// clauseHead matches article/chapter/section markers such as 第一條,
	// 第12條, 第三章.
	clauseHead = regexp.MustCompile(`第[一二三四五六七八九十百千萬\d]+[條章節]`)
	// subClauseHead matches enumerated sub-items such as （一） or (二).
	subClauseHead = regexp.MustCompile(`[（(]([一二三四五六七八九十]+)[）)]`)
	headTrim      = regexp.MustCompile(`^[：:\s]+`)
)

// SplitClauses segments contract text into ordered clauses. Text without
// recognizable clause markers falls back to one clause per non-empty
// paragraph. Pure function: no side effects.
func SplitClauses(text string) []analysis.Clause {
	heads := clauseHead.FindAllStringIndex(text, -1)
	if len(heads) == 0 {
		return splitParagraphs(text)
	}

	clauses := make([]analysis.Clause, 0, len(heads))
	for i, head := range heads {
		id := text[head[0]:head[1]]
		end := len(text)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		body := strings.TrimSpace(headTrim.ReplaceAllString(text[head[1]:end], ""))

		subs := splitSubClauses(body)
		if len(subs) == 0 {
			clauses = append(clauses, analysis.Clause{ID: id, Text: body})
			continue
		}

		clauses = append(clauses, analysis.Clause{ID: id, Text: body, HasSubClauses: true})
		for _, sub := range subs {
			clauses = append(clauses, analysis.Clause{
				ID:       id + "-" + sub.id,
				Text:     sub.text,
				ParentID: id,
			})
		}
	}
	return clauses
}

type subClause struct {
	id   string
	text string
}

func splitSubClauses(body string) []subClause {
	heads := subClauseHead.FindAllStringSubmatchIndex(body, -1)
	if len(heads) == 0 {
		return nil
	}

	subs := make([]subClause, 0, len(heads))
	for i, head := range heads {
		id := body[head[2]:head[3]]
		end := len(body)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		text := strings.TrimSpace(headTrim.ReplaceAllString(body[head[1]:end], ""))
		subs = append(subs, subClause{id: id, text: text})
	}
	return subs
}

func splitParagraphs(text string) []analysis.Clause {
	var clauses []analysis.Clause
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		clauses = append(clauses, analysis.Clause{
			ID:   fmt.Sprintf("p%d", len(clauses)+1),
			Text: trimmed,
		})
	}
	return clauses
}
