package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sitepanel/sitepanel/internal/persona"
)

const (
	// DefaultMaxContentLength caps the preprocessed page text sent into
	// prompt construction.
	DefaultMaxContentLength = 2000

	maxHeaders        = 5
	maxParagraphs     = 3
	headerLineMaxLen  = 100
)

// PreprocessContent collapses whitespace within paragraphs, drops duplicate
// paragraphs (order-preserving, first occurrence wins), and truncates the
// result to maxLen characters. Paragraph boundaries (blank lines) survive
// so downstream extraction can split on them.
func PreprocessContent(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLength
	}

	seen := map[string]struct{}{}
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		para := strings.Join(strings.Fields(block), " ")
		if para == "" {
			continue
		}
		if _, dup := seen[para]; dup {
			continue
		}
		seen[para] = struct{}{}
		paragraphs = append(paragraphs, para)
	}

	cleaned := strings.Join(paragraphs, "\n\n")
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}

// ExtractHeaders returns up to 5 header-like lines in document order:
// lines under 100 characters containing at least one uppercase letter.
func ExtractHeaders(content string) string {
	var headers []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= headerLineMaxLen {
			continue
		}
		if !strings.ContainsFunc(line, unicode.IsUpper) {
			continue
		}
		headers = append(headers, line)
		if len(headers) == maxHeaders {
			break
		}
	}
	return strings.Join(headers, "\n")
}

// ExtractMainContent picks the 3 paragraphs most relevant to the persona.
// Each paragraph scores 2 per matched interest plus 2 per matched need plus
// a recency bonus favoring earlier paragraphs; the winners are re-joined in
// descending score order, not document order.
func ExtractMainContent(content string, p persona.Persona) string {
	paragraphs := strings.Split(content, "\n\n")
	total := len(paragraphs)

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, total)
	for idx, para := range paragraphs {
		lower := strings.ToLower(para)
		score := 0.0
		for _, interest := range p.Interests {
			if strings.Contains(lower, strings.ToLower(interest)) {
				score += 2
			}
		}
		for _, need := range p.Needs {
			if strings.Contains(lower, strings.ToLower(need)) {
				score += 2
			}
		}
		score += float64(total-idx) / float64(total)
		ranked = append(ranked, scored{text: para, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := min(maxParagraphs, len(ranked))
	parts := make([]string, 0, n)
	for _, s := range ranked[:n] {
		parts = append(parts, s.text)
	}
	return strings.Join(parts, "\n\n")
}

// Truncate caps a string at n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
