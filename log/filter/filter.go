// Package filter provides a slog.Handler that drops records below a per-realm minimum level.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	v1 "ocm.software/open-component-model/managerproxy/log/config/v1"
)

// LoggingKeyRealm is the attribute key identifying the realm of a record.
const LoggingKeyRealm = "realm"

type filter struct {
	handler slog.Handler
	filters map[string]slog.Level
	key     string
	// preset is the value of key bound through WithAttrs, if any.
	preset string
}

// New wraps handler so that records whose key attribute matches an entry of filters
// are only passed on at or above the level of that entry.
func New(handler slog.Handler, key string, filters map[string]slog.Level) slog.Handler {
	return &filter{
		handler: handler,
		filters: filters,
		key:     key,
	}
}

func (f *filter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.handler.Enabled(ctx, level)
}

func (f *filter) WithAttrs(attrs []slog.Attr) slog.Handler {
	preset := f.preset
	for _, attr := range attrs {
		if attr.Key == f.key {
			preset = attr.Value.String()
		}
	}
	return &filter{
		handler: f.handler.WithAttrs(attrs),
		filters: f.filters,
		key:     f.key,
		preset:  preset,
	}
}

func (f *filter) WithGroup(name string) slog.Handler {
	return &filter{
		handler: f.handler.WithGroup(name),
		filters: f.filters,
		key:     f.key,
		preset:  f.preset,
	}
}

func (f *filter) Handle(ctx context.Context, record slog.Record) error {
	if f.dropped(record) {
		return nil
	}
	return f.handler.Handle(ctx, record)
}

func (f *filter) dropped(record slog.Record) bool {
	value := f.preset
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == f.key {
			value = attr.Value.String()
			return false
		}
		return true
	})
	if value == "" {
		return false
	}
	minLevel, exists := f.filters[value]
	return exists && record.Level < minLevel
}

// RealmFiltersFromConfig returns the realm levels defined by the rules of cfg.
func RealmFiltersFromConfig(cfg *v1.Config) (map[string]slog.Level, error) {
	realmFilters := make(map[string]slog.Level)
	if cfg == nil {
		return realmFilters, nil
	}
	for _, rule := range cfg.Settings.Rules {
		var level slog.Level
		if err := level.UnmarshalText([]byte(rule.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level in rule %s: %w", rule.Level, err)
		}
		for _, condition := range rule.Conditions {
			if condition.Realm == "" {
				return nil, fmt.Errorf("condition realm cannot be empty in rule: %v", rule)
			}
			realmFilters[condition.Realm] = level
		}
	}
	return realmFilters, nil
}

// KeyFiltersFromStrings parses filters of the form "key=level", for example "backend=warn".
func KeyFiltersFromStrings(raw ...string) (map[string]slog.Level, error) {
	filters := make(map[string]slog.Level, len(raw))
	for _, filter := range raw {
		key, levelStr, found := strings.Cut(filter, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter format: %s, expected key=level", filter)
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelStr)); err != nil {
			return nil, fmt.Errorf("invalid log level in filter %s: %w", filter, err)
		}
		filters[key] = level
	}
	return filters, nil
}
