package focusgroup

import (
	"sort"

	"github.com/sitepanel/sitepanel/internal/report"
)

const topPatterns = 5

// aggregate collects likes, dislikes, and next expectations across every
// page of every persona report and keeps the most frequent entries per
// category.
func aggregate(reports []*report.AnalysisReport) report.CommonPatterns {
	var likes, dislikes, expectations []string
	for _, r := range reports {
		for _, page := range r.PagesAnalyzed {
			likes = append(likes, page.Likes...)
			dislikes = append(dislikes, page.Dislikes...)
			expectations = append(expectations, page.NextExpectations...)
		}
	}

	return report.CommonPatterns{
		Likes:        topByCount(likes, topPatterns),
		Dislikes:     topByCount(dislikes, topPatterns),
		Expectations: topByCount(expectations, topPatterns),
	}
}

// topByCount returns the n most frequent values, ordered by descending
// count with ties broken by first appearance.
func topByCount(values []string, n int) []report.PatternCount {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	var order []string
	for i, v := range values {
		if _, ok := counts[v]; !ok {
			firstSeen[v] = i
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	result := make([]report.PatternCount, 0, len(order))
	for _, v := range order {
		result = append(result, report.PatternCount{Text: v, Count: counts[v]})
	}
	return result
}
