package analysis

import "strings"

const (
	visualBriefHeader     = "VISUAL BRIEF"
	finalAssessmentMarker = "FINAL ASSESSMENT"
)

// ParseResponse turns the model's sectioned free-text answer into a
// PageAnalysis. The parser is tolerant: blocks that match nothing are
// ignored and missing sections leave their fields at zero values. It
// never fails because the model's adherence to the template is not
// guaranteed.
func ParseResponse(url, response string) PageAnalysis {
	a := PageAnalysis{URL: url}

	inFinal := false
	for _, block := range strings.Split(response, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		if strings.HasPrefix(block, visualBriefHeader) {
			lines := strings.Split(block, "\n")
			a.VisualAnalysis = listItems(lines[1:])
			continue
		}
		if strings.Contains(block, finalAssessmentMarker) {
			inFinal = true
			continue
		}
		if !inFinal {
			continue
		}

		switch {
		case strings.HasPrefix(block, "Summary:"):
			a.Summary = sectionText(block, "Summary:")
		case strings.HasPrefix(block, "Likes:"):
			a.Likes = sectionList(block, "Likes:")
		case strings.HasPrefix(block, "Dislikes:"):
			a.Dislikes = sectionList(block, "Dislikes:")
		case strings.HasPrefix(block, "Click Reasons:"):
			a.ClickReasons = sectionList(block, "Click Reasons:")
		case strings.HasPrefix(block, "Next Expectations:"):
			a.NextExpectations = sectionList(block, "Next Expectations:")
		case strings.HasPrefix(block, "Overall Impression:"):
			a.OverallImpression = sectionText(block, "Overall Impression:")
		}
	}

	return a
}

func sectionText(block, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(block, label))
}

func sectionList(block, label string) []string {
	rest := strings.TrimPrefix(block, label)
	return listItems(strings.Split(rest, "\n"))
}

func listItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		item := strings.TrimSpace(line)
		item = strings.TrimSpace(strings.TrimLeft(item, "-"))
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
