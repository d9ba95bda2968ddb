package search

import (
	"fmt"
	"strings"
)

// DefaultContextBudget caps the assembled RAG context in runes. Roughly
// 2-3k tokens, leaving the rest of the LLM window for history and answer.
const DefaultContextBudget = 8000

// AssembleContext formats retrieval results into the context block sent to
// the LLM. Results are already one-chunk-per-email; each entry is cited
// with the email header so the model can attribute its answer. Entries are
// appended in rank order until the rune budget is exhausted.
func AssembleContext(results []Result, budget int) string {
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	var b strings.Builder
	used := 0
	for i, r := range results {
		header := fmt.Sprintf("[%d] Subject: %s | From: %s", i+1, r.Doc.Subject, r.Doc.Sender)
		if r.Doc.SentAt != nil {
			header += " | Date: " + r.Doc.SentAt.Format("2006-01-02")
		}

		entry := header + "\n" + strings.TrimSpace(r.Doc.Content) + "\n\n"
		entryLen := len([]rune(entry))
		if used+entryLen > budget {
			if used == 0 {
				// First entry alone exceeds the budget: truncate rather
				// than return an empty context.
				runes := []rune(entry)
				b.WriteString(string(runes[:budget]))
			}
			break
		}

		b.WriteString(entry)
		used += entryLen
	}

	return strings.TrimRight(b.String(), "\n")
}
