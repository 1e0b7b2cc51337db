// Package v1 contains the logging configuration of the manager proxy.
package v1

import (
	"fmt"

	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
)

const (
	ConfigType = "logging.config.ocm.software"
	Version    = "v1"
)

// Config configures logging.
type Config struct {
	Type string `json:"type"`

	// Settings defines generic logging settings.
	Settings Settings `json:"settings"`
}

type Settings struct {
	// DefaultLevel defines the default logging level to use if no specific rule matches.
	DefaultLevel string `json:"defaultLevel,omitempty"`
	// Rules defines a list of rules that can be used to filter logs based on conditions.
	Rules []Rule `json:"rules,omitempty"`
}

type Rule struct {
	// Level defines the logging level for this rule.
	Level string `json:"level"`
	// Conditions defines the conditions that must be met for this rule to apply.
	Conditions []Condition `json:"conditions"`
}

type Condition struct {
	// Realm identifies a category of functionality, such as "backend" or "service".
	Realm string `json:"realm,omitempty"`
}

// Lookup decodes and merges every logging configuration in doc.
// It returns nil if doc holds no logging configuration.
func Lookup(doc *configv1.Document) (*Config, error) {
	entries := doc.Filter(ConfigType, Version)
	cfgs := make([]*Config, 0, len(entries))
	for _, entry := range entries {
		var config Config
		if err := entry.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode logging config: %w", err)
		}
		cfgs = append(cfgs, &config)
	}
	return Merge(cfgs...), nil
}

// Merge merges the provided configs into a single config.
// The last default level wins, rules are concatenated.
func Merge(configs ...*Config) *Config {
	if len(configs) == 0 {
		return nil
	}

	merged := new(Config)
	merged.Type = configs[0].Type
	for _, config := range configs {
		if config.Settings.DefaultLevel != "" {
			merged.Settings.DefaultLevel = config.Settings.DefaultLevel
		}
		merged.Settings.Rules = append(merged.Settings.Rules, config.Settings.Rules...)
	}
	return merged
}
