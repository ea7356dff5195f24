package gap

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/relabs-io/vantage/core"
	"github.com/relabs-io/vantage/telemetry"
)

// Config tunes the analyzer's size limits, confidence floor, and the
// undocumented-technology detector's allowlist.
type Config struct {
	MaxFileSizeBytes    int64
	MinConfidence       float64
	DocumentedAllowlist map[string]bool
}

// DefaultConfig matches the reference fixture's expectations: a generous
// size ceiling, no confidence filtering, and the built-in allowlist.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes:    5 * 1024 * 1024,
		MinConfidence:       0,
		DocumentedAllowlist: defaultDocumentedAllowlist(),
	}
}

// Analyzer runs the full detector pipeline against a single file.
type Analyzer struct {
	cfg    Config
	logger core.Logger
}

// NewAnalyzer builds an Analyzer. A nil logger is replaced with a no-op.
func NewAnalyzer(cfg Config, logger core.Logger) *Analyzer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.DocumentedAllowlist == nil {
		cfg.DocumentedAllowlist = defaultDocumentedAllowlist()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// AnalyzeFile reads path, routes it by extension/content, and runs every
// applicable detector. An empty file yields an empty, non-nil gap slice; a
// missing file returns an error naming the path.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) ([]Gap, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, core.New("gap.Analyzer.AnalyzeFile", "gap_analyzer", core.KindValidation,
			fmt.Sprintf("cannot access %s: %v", path, err), err)
	}
	if info.Size() > a.cfg.MaxFileSizeBytes {
		return nil, core.New("gap.Analyzer.AnalyzeFile", "gap_analyzer", core.KindValidation,
			fmt.Sprintf("%s exceeds the size limit (%d bytes)", path, a.cfg.MaxFileSizeBytes), nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, core.New("gap.Analyzer.AnalyzeFile", "gap_analyzer", core.KindValidation,
			fmt.Sprintf("cannot read %s: %v", path, err), err)
	}
	if len(content) == 0 {
		return []Gap{}, nil
	}
	if looksBinary(content) {
		a.logger.Debug("skipping binary file", map[string]interface{}{"path": path})
		return []Gap{}, nil
	}

	lang := languageFor(path)
	lines := strings.Split(string(content), "\n")

	var gaps []Gap
	gaps = append(gaps, detectMarkers(path, lines)...)
	gaps = append(gaps, detectMissingDocumentation(path, lang, lines)...)
	gaps = append(gaps, detectAPIDocumentationGaps(path, lang, lines)...)
	gaps = append(gaps, detectUndocumentedTechnology(path, lang, lines, a.cfg.DocumentedAllowlist)...)
	gaps = append(gaps, detectConfigurationGaps(path, lang, lines)...)

	filtered := gaps[:0]
	for _, g := range gaps {
		if g.Confidence >= a.cfg.MinConfidence {
			filtered = append(filtered, g)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Line != filtered[j].Line {
			return filtered[i].Line < filtered[j].Line
		}
		return filtered[i].Column < filtered[j].Column
	})

	for _, g := range filtered {
		telemetry.Counter("proactive.gaps.detected", "gap_type", string(g.Type))
	}

	return filtered, nil
}
