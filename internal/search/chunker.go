package search

import "strings"

// Default chunking geometry. Overlap keeps sentences that straddle a
// boundary retrievable from both sides.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 200
)

// SplitChunks slices text into overlapping rune windows of roughly size
// runes. Cuts prefer a paragraph break, then a sentence end, inside the
// last quarter of the window, so chunks stay coherent.
func SplitChunks(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	// findCut can move a boundary back to the last quarter of the window,
	// so overlap above size/2 could stop the scan from advancing.
	if overlap < 0 || overlap > size/2 {
		overlap = size / 4
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findCut(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		start = end - overlap
	}

	return chunks
}

// findCut searches backwards from end for a natural boundary within the
// last quarter of the window.
func findCut(runes []rune, start, end int) int {
	minCut := end - (end-start)/4

	// Paragraph break first.
	for i := end - 1; i > minCut; i-- {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i
		}
	}
	// Then end of sentence.
	for i := end - 1; i > minCut; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return end
}
