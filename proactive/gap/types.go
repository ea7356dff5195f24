// Package gap implements the file-level gap analyzer (TODO comments, missing
// documentation, undocumented technology, configuration gaps) that feeds the
// proactive research pipeline.
package gap

// Type classifies a detected gap.
type Type string

const (
	TodoComment            Type = "todo_comment"
	MissingDocumentation   Type = "missing_documentation"
	ApiDocumentationGap    Type = "api_documentation_gap"
	UndocumentedTechnology Type = "undocumented_technology"
	ConfigurationGap       Type = "configuration_gap"
)

// Gap is a single finding produced by a detector.
type Gap struct {
	Type        Type
	FilePath    string
	Line        int
	Column      int
	Context     string
	Description string
	Confidence  float64
	Priority    int
	Metadata    map[string]string
}

// Language identifies the source language a file is routed to for
// language-aware detectors.
type Language string

const (
	LangRust       Language = "rust"
	LangJavaScript Language = "javascript"
	LangTOML       Language = "toml"
	LangUnknown    Language = "unknown"
)
