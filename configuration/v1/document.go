// Package v1 contains the configuration documents read by the manager proxy.
//
// A configuration file is either a single typed document or a generic document that carries
// several typed configurations:
//
//	type: generic.config.ocm.software/v1
//	configurations:
//	- type: managerproxy.config.ocm.software/v1alpha1
//	  address: 127.0.0.1:50051
//	- type: logging.config.ocm.software/v1
//	  settings:
//	    defaultLevel: info
package v1

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	GenericConfigType = "generic.config.ocm.software"
	GenericVersion    = "v1"
)

// Raw is a typed configuration that is not decoded yet.
type Raw struct {
	Type string `json:"type"`
	Data []byte `json:"-"`
}

func (r *Raw) UnmarshalJSON(data []byte) error {
	var typed struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	r.Type = typed.Type
	r.Data = append([]byte(nil), data...)
	return nil
}

func (r *Raw) MarshalJSON() ([]byte, error) {
	return r.Data, nil
}

// Decode unmarshals the configuration into v.
func (r *Raw) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Generic carries several typed configurations.
type Generic struct {
	Type           string `json:"type"`
	Configurations []*Raw `json:"configurations,omitempty"`
}

// Document is the parsed content of a configuration file.
type Document struct {
	Configurations []*Raw
}

// Load reads the configuration file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	return doc, nil
}

// Parse parses a YAML or JSON configuration.
func Parse(data []byte) (*Document, error) {
	data, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("configuration has no type")
	}
	if !MatchesType(raw.Type, GenericConfigType, GenericVersion) {
		return &Document{Configurations: []*Raw{&raw}}, nil
	}

	var generic Generic
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invalid generic configuration: %w", err)
	}
	for i, entry := range generic.Configurations {
		if entry == nil || entry.Type == "" {
			return nil, fmt.Errorf("configuration entry %d has no type", i)
		}
	}
	return &Document{Configurations: generic.Configurations}, nil
}

// Filter returns the configurations of the given type, in either its versioned or unversioned form.
func (d *Document) Filter(typ, version string) []*Raw {
	if d == nil {
		return nil
	}
	var matching []*Raw
	for _, entry := range d.Configurations {
		if MatchesType(entry.Type, typ, version) {
			matching = append(matching, entry)
		}
	}
	return matching
}

// MatchesType reports whether actual is typ or typ/version.
func MatchesType(actual, typ, version string) bool {
	name, v, versioned := strings.Cut(actual, "/")
	if name != typ {
		return false
	}
	return !versioned || v == version
}
