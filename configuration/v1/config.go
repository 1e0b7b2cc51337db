package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ConfigType = "managerproxy.config.ocm.software"
	Version    = "v1alpha1"
)

const (
	DefaultAddress          = "0.0.0.0:50051"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultBackendQueueSize = 64
)

// Config configures the manager proxy server.
type Config struct {
	Type string `json:"type"`

	// Address is the listen address of the RPC service.
	Address string `json:"address,omitempty"`
	// MetricsAddress is the listen address of the metrics endpoint. Empty disables it.
	MetricsAddress string `json:"metricsAddress,omitempty"`
	// PluginPaths are searched for manager plugins.
	PluginPaths []string `json:"pluginPaths,omitempty"`
	// DisableBuiltin removes the managers linked into the server.
	DisableBuiltin bool `json:"disableBuiltin,omitempty"`
	// MaxInstances limits the number of live manager instances. Zero means unlimited.
	MaxInstances int `json:"maxInstances,omitempty" jsonschema:"minimum=0"`
	// StrictDestroy makes destroying an unknown handle fail.
	StrictDestroy bool `json:"strictDestroy,omitempty"`
	// ShutdownTimeout bounds the graceful shutdown of in-flight calls.
	ShutdownTimeout *Duration `json:"shutdownTimeout,omitempty"`
	// BackendQueueSize is the number of calls that may wait for the backend.
	BackendQueueSize int `json:"backendQueueSize,omitempty" jsonschema:"minimum=0"`
}

// Default fills unset fields with their defaults.
func (c *Config) Default() {
	if c.Type == "" {
		c.Type = ConfigType + "/" + Version
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.ShutdownTimeout == nil {
		d := Duration(DefaultShutdownTimeout)
		c.ShutdownTimeout = &d
	}
	if c.BackendQueueSize == 0 {
		c.BackendQueueSize = DefaultBackendQueueSize
	}
}

// Merge merges configs into a single config. Later configs override set fields of earlier ones,
// plugin paths are appended.
func Merge(configs ...*Config) *Config {
	merged := &Config{Type: ConfigType + "/" + Version}
	for _, cfg := range configs {
		if cfg.Address != "" {
			merged.Address = cfg.Address
		}
		if cfg.MetricsAddress != "" {
			merged.MetricsAddress = cfg.MetricsAddress
		}
		merged.PluginPaths = append(merged.PluginPaths, cfg.PluginPaths...)
		merged.DisableBuiltin = merged.DisableBuiltin || cfg.DisableBuiltin
		if cfg.MaxInstances != 0 {
			merged.MaxInstances = cfg.MaxInstances
		}
		merged.StrictDestroy = merged.StrictDestroy || cfg.StrictDestroy
		if cfg.ShutdownTimeout != nil {
			merged.ShutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.BackendQueueSize != 0 {
			merged.BackendQueueSize = cfg.BackendQueueSize
		}
	}
	return merged
}

// Lookup decodes and merges every server configuration in doc. Each configuration is validated
// against the JSON schema of Config. Without any configuration an empty Config is returned.
func Lookup(doc *Document) (*Config, error) {
	entries := doc.Filter(ConfigType, Version)
	configs := make([]*Config, 0, len(entries))
	for _, entry := range entries {
		if err := Validate(entry); err != nil {
			return nil, err
		}
		var cfg Config
		if err := entry.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s configuration: %w", ConfigType, err)
		}
		configs = append(configs, &cfg)
	}
	return Merge(configs...), nil
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	reflector := invopop.Reflector{
		DoNotReference: true,
	}
	raw, err := json.Marshal(reflector.Reflect(&Config{}))
	if err != nil {
		return nil, fmt.Errorf("failed to generate configuration schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add configuration schema: %w", err)
	}
	return c.Compile("config.schema.json")
})

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	return json.MarshalIndent((&invopop.Reflector{DoNotReference: true}).Reflect(&Config{}), "", "  ")
}

// Validate validates a server configuration against the schema of Config.
func Validate(raw *Raw) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw.Data))
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("invalid %s configuration: %w", ConfigType, err)
	}
	return nil
}

// Duration is a time.Duration that is represented as a duration string such as "30s".
// Plain numbers are interpreted as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: expected a duration string or nanoseconds", data)
	}
	*d = Duration(n)
	return nil
}

func (Duration) JSONSchema() *invopop.Schema {
	return &invopop.Schema{
		OneOf: []*invopop.Schema{
			{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`},
			{Type: "integer"},
		},
	}
}

// Get returns the duration, or def if d is nil.
func (d *Duration) Get(def time.Duration) time.Duration {
	if d == nil {
		return def
	}
	return time.Duration(*d)
}
