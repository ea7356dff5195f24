package research

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/providers"
)

type fakeManager struct {
	responses []string
	provider  string
	errs      []error
	calls     int
	stats     map[string]providers.Stats
}

func (f *fakeManager) ExecuteResearch(ctx context.Context, rt ResearchType, query string) (string, string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", "", f.errs[i]
	}
	resp := "default response"
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, f.provider, nil
}

func (f *fakeManager) GetPerformanceStats() map[string]providers.Stats {
	if f.stats != nil {
		return f.stats
	}
	return map[string]providers.Stats{f.provider: {Total: 10, Successful: 9}}
}

func implementationRequest() ClassifiedRequest {
	return ClassifiedRequest{
		OriginalQuery: "how do I add caching?",
		ResearchType:  Implementation,
		Complexity:    ComplexityOf(Implementation),
		Parameters:    map[string]string{"feature": "caching", "technology": "Go"},
	}
}

func TestEngineExecuteParsesHeadingsAndAssignsMetadata(t *testing.T) {
	m := &fakeManager{
		provider: "openai",
		responses: []string{"## Answer\nUse an LRU cache.\n\n## Evidence\nBenchmarks show 40% latency reduction.\n\n## Implementation\nWrap the store with vector.EmbeddingCache."},
	}
	e := NewEngine(m, nil, DefaultConfig(), nil)

	result, err := e.Execute(context.Background(), implementationRequest())
	require.NoError(t, err)
	assert.Equal(t, "Use an LRU cache.", result.ImmediateAnswer)
	require.Len(t, result.SupportingEvidence, 1)
	require.Len(t, result.ImplementationDetails, 1)
	assert.Greater(t, result.Metadata.QualityScore, 0.0)
	assert.Equal(t, []string{"openai"}, result.Metadata.SourcesConsulted)
	assert.Contains(t, result.Metadata.Tags, "provider_count")
}

func TestEngineExecuteFallsBackToWholeTextWithoutHeadings(t *testing.T) {
	m := &fakeManager{provider: "openai", responses: []string{"just a plain answer with no headings"}}
	e := NewEngine(m, nil, DefaultConfig(), nil)

	result, err := e.Execute(context.Background(), implementationRequest())
	require.NoError(t, err)
	assert.Equal(t, "just a plain answer with no headings", result.ImmediateAnswer)
}

func TestEngineExecuteFailsWithMissingTemplateParameters(t *testing.T) {
	m := &fakeManager{provider: "openai"}
	e := NewEngine(m, nil, DefaultConfig(), nil)

	req := implementationRequest()
	req.Parameters = map[string]string{"feature": "caching"} // missing "technology"

	_, err := e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.True(t, core.IsConfigurationError(err))
}

func TestEngineExecuteTriggersCrossValidationBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQualityScore = 0.95
	cfg.QualityThreshold = 0.95
	cfg.EnableCrossValidation = true
	cfg.CrossValidationProviders = 2

	m := &fakeManager{
		provider: "a",
		responses: []string{
			"## Answer\nshort\n",
			"## Answer\nThis is a much longer and more thorough answer that should score higher.\n\n## Evidence\nSolid evidence.\n",
		},
	}
	e := NewEngine(m, nil, cfg, nil)

	result, err := e.Execute(context.Background(), implementationRequest())
	require.NoError(t, err)
	assert.Contains(t, result.ImmediateAnswer, "much longer")
	assert.Equal(t, 3, m.calls) // initial + 2 cross-validation attempts
}

func TestEngineEstimateProcessingTimeAppliesMultipliers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCrossValidation = true
	cfg.CrossValidationProviders = 2
	cfg.EnableVectorContext = true
	cfg.MaxProcessingTime = time.Hour

	e := NewEngine(&fakeManager{}, nil, cfg, nil)
	req := ClassifiedRequest{ResearchType: Implementation}

	estimate := e.EstimateProcessingTime(req)
	// 10s * 1.5 (implementation complexity) * 2 (cross-validation) * 1.2 (context)
	assert.Equal(t, time.Duration(float64(10*time.Second)*1.5*2*1.2), estimate)
}

func TestEngineEstimateProcessingTimeCapsAtMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxProcessingTime = 5 * time.Second
	e := NewEngine(&fakeManager{}, nil, cfg, nil)

	estimate := e.EstimateProcessingTime(ClassifiedRequest{ResearchType: Implementation})
	assert.Equal(t, 5*time.Second, estimate)
}
