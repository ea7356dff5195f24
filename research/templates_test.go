package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptRendersWithAllParameters(t *testing.T) {
	req := ClassifiedRequest{
		OriginalQuery: "how to cache results?",
		ResearchType:  Implementation,
		Complexity:    ComplexityOf(Implementation),
		Parameters:    map[string]string{"feature": "caching", "technology": "Go"},
	}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "caching")
	assert.Contains(t, prompt, "Go")
	assert.Contains(t, prompt, req.OriginalQuery)
}

func TestBuildPromptFailsOnMissingParameter(t *testing.T) {
	req := ClassifiedRequest{
		ResearchType: Troubleshooting,
		Parameters:   map[string]string{"problem": "crash"}, // missing "symptoms"
	}

	_, err := buildPrompt(req)
	require.Error(t, err)
}

func TestBuildPromptFailsOnBlankParameter(t *testing.T) {
	req := ClassifiedRequest{
		ResearchType: Learning,
		Parameters:   map[string]string{"topic": "   "},
	}

	_, err := buildPrompt(req)
	require.Error(t, err)
}

func TestTierOfBucketsComplexity(t *testing.T) {
	assert.Equal(t, tierLow, tierOf(1.0))
	assert.Equal(t, tierMedium, tierOf(1.2))
	assert.Equal(t, tierHigh, tierOf(1.5))
}
