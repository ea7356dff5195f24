package research

import (
	"fmt"
	"strings"

	"github.com/relabs-io/vantage/core"
)

// complexityTier buckets a Complexity value into Low/Medium/High so the
// template registry can be keyed by (research_type, complexity) without
// requiring an exact float match.
type complexityTier string

const (
	tierLow    complexityTier = "low"
	tierMedium complexityTier = "medium"
	tierHigh   complexityTier = "high"
)

func tierOf(c Complexity) complexityTier {
	switch {
	case c < 1.15:
		return tierLow
	case c < 1.35:
		return tierMedium
	default:
		return tierHigh
	}
}

type templateKey struct {
	researchType ResearchType
	tier         complexityTier
}

// template holds the required parameter names and a rendering function.
// Rendering is plain string substitution rather than text/template: the
// parameter set is small, fixed, and known at registration time, so a
// template engine would add indirection without buying anything (one
// stdlib-only choice recorded in the grounding ledger).
type template struct {
	requiredParams []string
	render         func(req ClassifiedRequest) string
}

// registry is the default template set for every (research_type,
// complexity tier) pair; all tiers of a given type currently share one
// template body since the prompt's required parameters don't change with
// complexity, only the model's effort does (left to the provider/model
// choice, not the prompt).
var registry = map[templateKey]template{}

func register(rt ResearchType, requiredParams []string, render func(req ClassifiedRequest) string) {
	for _, tier := range []complexityTier{tierLow, tierMedium, tierHigh} {
		registry[templateKey{researchType: rt, tier: tier}] = template{
			requiredParams: requiredParams,
			render:         render,
		}
	}
}

func init() {
	register(Implementation, []string{"feature", "technology"}, func(req ClassifiedRequest) string {
		return fmt.Sprintf(
			"Provide an implementation guide for feature %q using %q.\n\nQuery: %s\n\n"+
				"Respond with sections: \"## Answer\", \"## Evidence\", \"## Implementation\".",
			req.Parameters["feature"], req.Parameters["technology"], req.OriginalQuery,
		)
	})

	register(Troubleshooting, []string{"problem", "symptoms"}, func(req ClassifiedRequest) string {
		return fmt.Sprintf(
			"Diagnose the problem %q given symptoms: %s.\n\nQuery: %s\n\n"+
				"Respond with sections: \"## Answer\", \"## Evidence\", \"## Implementation\".",
			req.Parameters["problem"], req.Parameters["symptoms"], req.OriginalQuery,
		)
	})

	register(Decision, []string{"options", "criteria"}, func(req ClassifiedRequest) string {
		return fmt.Sprintf(
			"Recommend a decision among options %q evaluated against criteria %q.\n\nQuery: %s\n\n"+
				"Respond with sections: \"## Answer\", \"## Evidence\".",
			req.Parameters["options"], req.Parameters["criteria"], req.OriginalQuery,
		)
	})

	register(Learning, []string{"topic"}, func(req ClassifiedRequest) string {
		return fmt.Sprintf(
			"Explain the topic %q for someone learning it.\n\nQuery: %s\n\n"+
				"Respond with sections: \"## Answer\", \"## Evidence\".",
			req.Parameters["topic"], req.OriginalQuery,
		)
	})

	register(Validation, []string{"claim", "context"}, func(req ClassifiedRequest) string {
		return fmt.Sprintf(
			"Validate the claim %q given context %q.\n\nQuery: %s\n\n"+
				"Respond with sections: \"## Answer\", \"## Evidence\".",
			req.Parameters["claim"], req.Parameters["context"], req.OriginalQuery,
		)
	})
}

// buildPrompt looks up the template for
// (research_type, complexity), verify every required parameter is
// present and non-blank, and render the prompt. Missing parameters fail
// with a Configuration-flavoured VantageError (KindValidation, wrapping
// core.ErrMissingConfiguration so callers can still errors.Is it).
func buildPrompt(req ClassifiedRequest) (string, error) {
	key := templateKey{researchType: req.ResearchType, tier: tierOf(req.Complexity)}
	tpl, ok := registry[key]
	if !ok {
		return "", core.New("research.Engine.buildPrompt", string(req.ResearchType), core.KindValidation,
			fmt.Sprintf("no template registered for research type %q", req.ResearchType), core.ErrMissingConfiguration)
	}

	var missing []string
	for _, name := range tpl.requiredParams {
		if strings.TrimSpace(req.Parameters[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", core.New("research.Engine.buildPrompt", string(req.ResearchType), core.KindValidation,
			fmt.Sprintf("missing required template parameters: %s", strings.Join(missing, ", ")), core.ErrMissingConfiguration)
	}

	return tpl.render(req), nil
}
