package gap

import (
	"gopkg.in/yaml.v3"

	"github.com/relabs-io/vantage/core"
)

// documentedAllowlistYAML is the shape of the YAML fixture parsed by
// LoadDocumentedAllowlistYAML: a flat list of package/crate roots the
// project already documents elsewhere.
type documentedAllowlistYAML struct {
	Documented []string `yaml:"documented"`
}

// LoadDocumentedAllowlistYAML parses a YAML document listing already-
// documented technology roots into the map shape Config.DocumentedAllowlist
// expects. Like providers.LoadPricingTableYAML, this is a fixture/offline-
// snapshot loader (project documentation inventories, test fixtures), not
// a runtime configuration path: Analyzer itself is always constructed
// with an explicit Config value.
func LoadDocumentedAllowlistYAML(data []byte) (map[string]bool, error) {
	var raw documentedAllowlistYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, core.New("gap.LoadDocumentedAllowlistYAML", "gap_analyzer", core.KindValidation,
			"invalid documented-allowlist yaml", err)
	}

	allowlist := make(map[string]bool, len(raw.Documented))
	for _, name := range raw.Documented {
		allowlist[name] = true
	}
	return allowlist, nil
}
