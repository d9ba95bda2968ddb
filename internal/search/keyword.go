package search

// subjectBoost weights subject hits on top of body overlap. A query term
// appearing in the subject line is a much stronger relevance signal than
// one buried in the body.
const subjectBoost = 0.5

// keywordScore computes the query-term overlap ratio against the chunk
// body, plus a boosted overlap against the subject. Range [0, 1+subjectBoost].
func keywordScore(doc *Document, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	content := make(map[string]struct{}, len(doc.contentTokens))
	for _, t := range doc.contentTokens {
		content[t] = struct{}{}
	}
	subject := make(map[string]struct{}, len(doc.subjectTokens))
	for _, t := range doc.subjectTokens {
		subject[t] = struct{}{}
	}

	var bodyHits, subjectHits int
	for _, q := range queryTokens {
		if _, ok := content[q]; ok {
			bodyHits++
		}
		if _, ok := subject[q]; ok {
			subjectHits++
		}
	}

	n := float64(len(queryTokens))
	return float64(bodyHits)/n + subjectBoost*float64(subjectHits)/n
}
