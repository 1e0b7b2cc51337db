// Package render writes command results in the output formats selected by the user.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

type OutputFormat int

const (
	OutputFormatTable OutputFormat = iota
	OutputFormatJSON
	OutputFormatNDJSON
	OutputFormatYAML
)

func (o OutputFormat) String() string {
	switch o {
	case OutputFormatJSON:
		return "json"
	case OutputFormatNDJSON:
		return "ndjson"
	case OutputFormatYAML:
		return "yaml"
	default:
		return "table"
	}
}

// Formats lists the output formats in the order expected by enum flags, table first.
func Formats(extra ...string) []string {
	return append([]string{
		OutputFormatTable.String(),
		OutputFormatJSON.String(),
		OutputFormatNDJSON.String(),
		OutputFormatYAML.String(),
	}, extra...)
}

// TableFunc fills a table with items.
type TableFunc[T any] func(t table.Writer, items []T)

// List writes items in format. Formats not handled here are rendered as a table by fill.
func List[T any](w io.Writer, format string, items []T, fill TableFunc[T]) error {
	switch format {
	case OutputFormatJSON.String():
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(items)
	case OutputFormatNDJSON.String():
		encoder := json.NewEncoder(w)
		for _, item := range items {
			if err := encoder.Encode(item); err != nil {
				return err
			}
		}
		return nil
	case OutputFormatYAML.String():
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(items)
	default:
		if fill == nil {
			return fmt.Errorf("invalid output format %q", format)
		}
		t := NewTable(w)
		fill(t, items)
		t.Render()
		return nil
	}
}

// Object writes a single value in format. OutputFormatTable is not supported.
func Object(w io.Writer, format string, v any) error {
	switch format {
	case OutputFormatJSON.String():
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case OutputFormatNDJSON.String():
		return json.NewEncoder(w).Encode(v)
	case OutputFormatYAML.String():
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(v)
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}

// NewTable creates a borderless table writing to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Options.SeparateHeader = false
	t.SetStyle(style)
	return t
}
