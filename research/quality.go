package research

import "strings"

// scoreQuality is a lightweight, deterministic stand-in for the original
// engine's QualityValidator: it rewards a present, substantial answer and
// penalises missing evidence, returning a score in [0,1]. It never
// performs remote I/O so cross-validation can call it repeatedly.
func scoreQuality(r *Result) float64 {
	score := 0.0

	answer := strings.TrimSpace(r.ImmediateAnswer)
	switch {
	case answer == "":
		return 0.0
	case len(answer) < 40:
		score += 0.3
	case len(answer) < 200:
		score += 0.5
	default:
		score += 0.6
	}

	if len(r.SupportingEvidence) > 0 {
		score += 0.25
	}
	if len(r.ImplementationDetails) > 0 {
		score += 0.15
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
