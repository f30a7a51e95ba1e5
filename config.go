package ember

import (
	"fmt"

	"github.com/emberd/ember/policy"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration.
// It can be populated from JSON or YAML; the zero value is useful as all
// nested fields inherit their package defaults.
type Config struct {
	// Fuel is the default fuel grant policy applied to every process.
	Fuel policy.Fuel `json:"fuel" yaml:"fuel"`

	// EntryPoint is the exported function invoked per process.
	EntryPoint string `json:"entryPoint" yaml:"entryPoint"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Fuel:       *policy.Default(),
		EntryPoint: "hello",
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Fuel.InitialBudget == 0 {
		return fmt.Errorf("fuel.initialBudget must be > 0")
	}
	if c.EntryPoint == "" {
		return fmt.Errorf("entryPoint must not be empty")
	}
	return nil
}

// ParseConfig decodes YAML (or JSON, which YAML subsumes) configuration
// data on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
