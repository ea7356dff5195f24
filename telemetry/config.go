package telemetry

import "time"

// Config configures the telemetry system.
type Config struct {
	Enabled     bool
	ServiceName string
	// Endpoint is an OTLP/HTTP collector address, host:port.
	Endpoint string

	// CardinalityLimit is carried in the config but not enforced; only the
	// per-label budgets in CardinalityLimits bound label values (nil
	// CardinalityLimits falls back to the limiter's built-in budgets).
	CardinalityLimit  int
	CardinalityLimits map[string]int

	CircuitBreaker CircuitConfig
}

// Profile names a pre-built Config.
type Profile string

const (
	ProfileDevelopment Profile = "development"
	ProfileProduction  Profile = "production"
)

// Profiles holds the stock configurations. Production keeps tight
// per-label budgets on the labels the pipeline actually emits with
// unbounded inputs (provider names, error types).
var Profiles = map[Profile]Config{
	ProfileDevelopment: {
		Enabled:          true,
		Endpoint:         "localhost:4318",
		CardinalityLimit: 50000,
	},
	ProfileProduction: {
		Enabled:          true,
		Endpoint:         "otel-collector:4318",
		CardinalityLimit: 10000,
		CardinalityLimits: map[string]int{
			"provider":      20,
			"research_type": 10,
			"gap_type":      10,
			"error_type":    50,
		},
		CircuitBreaker: CircuitConfig{
			Enabled:      true,
			MaxFailures:  10,
			RecoveryTime: 30 * time.Second,
			HalfOpenMax:  5,
		},
	},
}

// UseProfile returns the named profile, falling back to development.
func UseProfile(profile Profile) Config {
	if config, ok := Profiles[profile]; ok {
		return config
	}
	return Profiles[ProfileDevelopment]
}
