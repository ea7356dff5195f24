// Package research implements the research engine: classify a query,
// assemble a prompt from a template, call the provider manager, parse the
// response, validate its quality, and optionally cross-validate across
// providers before assembling a ResearchResult.
package research

import (
	"time"

	"github.com/relabs-io/vantage/providers"
)

// ResearchType re-exports providers.ResearchType so callers never import
// providers just to name a research type; the manager and engine share
// one taxonomy.
type ResearchType = providers.ResearchType

const (
	Decision        = providers.ResearchDecision
	Implementation  = providers.ResearchImplementation
	Troubleshooting = providers.ResearchTroubleshooting
	Learning        = providers.ResearchLearning
	Validation      = providers.ResearchValidation
)

// Complexity multiplies EstimateProcessingTime's base duration. Each
// ResearchType has one fixed complexity.
type Complexity float64

var complexityByType = map[ResearchType]Complexity{
	Learning:        1.0,
	Validation:      1.1,
	Decision:        1.2,
	Troubleshooting: 1.3,
	Implementation:  1.5,
}

// ComplexityOf returns the fixed complexity for a research type, defaulting
// to the midpoint of the [1.0, 1.5] range for an unrecognised type.
func ComplexityOf(rt ResearchType) Complexity {
	if c, ok := complexityByType[rt]; ok {
		return c
	}
	return 1.25
}

// ClassifiedRequest is the input to the Research Engine: an original query
// already classified by research type, with free-form template parameters
// the registry's template for (research_type, complexity) consumes.
type ClassifiedRequest struct {
	OriginalQuery string
	ResearchType  ResearchType
	Complexity    Complexity
	Confidence    float64
	Parameters    map[string]string
}

// Evidence is one supporting-evidence block parsed from a "## Evidence"
// response section.
type Evidence struct {
	Source    string
	Content   string
	Relevance float64
	Type      string
}

// Detail is one implementation-guidance block parsed from a
// "## Implementation" response section.
type Detail struct {
	Category      string
	Content       string
	Priority      string
	Prerequisites []string
}

// Metadata carries the processing facts assembled at the end of a
// research run.
type Metadata struct {
	CompletedAt        time.Time
	ProcessingTimeMs   int64
	SourcesConsulted   []string
	QualityScore       float64
	QualityWarning     string
	Tags               map[string]string
}

// Result is the assembled output of Execute: an immediate answer plus
// structured evidence/implementation detail, and metadata about how it
// was produced.
type Result struct {
	Request                ClassifiedRequest
	ImmediateAnswer        string
	SupportingEvidence     []Evidence
	ImplementationDetails  []Detail
	Metadata               Metadata
}
