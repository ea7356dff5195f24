package research

import "strings"

// parseResponse splits a provider response on
// "## " headings, route "Answer"/"Evidence"/"Implementation" sections into
// their structured fields, and fall back to the entire text as the
// immediate answer when no heading matched.
func parseResponse(responseText string, req ClassifiedRequest) *Result {
	result := &Result{Request: req}

	sections := strings.Split(responseText, "## ")
	for _, section := range sections {
		if strings.TrimSpace(section) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(section, "Answer"):
			result.ImmediateAnswer = bodyAfterHeading(section)

		case strings.HasPrefix(section, "Evidence"):
			content := bodyAfterHeading(section)
			if content != "" {
				result.SupportingEvidence = append(result.SupportingEvidence, Evidence{
					Source:    "research.Engine",
					Content:   content,
					Relevance: 0.9,
					Type:      "research_analysis",
				})
			}

		case strings.HasPrefix(section, "Implementation"):
			content := bodyAfterHeading(section)
			if content != "" {
				result.ImplementationDetails = append(result.ImplementationDetails, Detail{
					Category: "implementation_guidance",
					Content:  content,
					Priority: "high",
				})
			}
		}
	}

	if strings.TrimSpace(result.ImmediateAnswer) == "" {
		result.ImmediateAnswer = responseText
	}

	return result
}

// bodyAfterHeading drops the first line (the heading text itself, already
// stripped of its "## " prefix by the caller's split) and returns the rest.
func bodyAfterHeading(section string) string {
	lines := strings.Split(section, "\n")
	if len(lines) <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:], "\n"))
}
