// Package factory discovers manager implementations and constructs manager instances.
package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"ocm.software/open-component-model/managerproxy/manager"
)

// Source provides manager implementations.
type Source interface {
	// Identifiers returns the identifiers of all implementations currently discoverable in the source.
	Identifiers(ctx context.Context) ([]string, error)
	// Instantiate constructs a new, independent manager for identifier.
	// It fails with an error wrapping manager.ErrUnknownIdentifier if the source
	// has no implementation with that identifier.
	Instantiate(ctx context.Context, identifier string) (manager.Manager, error)
}

// Factory combines several sources. If two sources provide the same identifier
// the source passed first wins.
// Factory is not safe for concurrent use. Its methods are executed on the backend runtime.
type Factory struct {
	sources []Source
	logger  *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger of the factory.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// New creates a factory over sources.
func New(sources []Source, opts ...Option) *Factory {
	f := &Factory{
		sources: slices.Clone(sources),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(slog.String("realm", "plugin"))
	return f
}

// Identifiers returns the sorted identifiers of all sources.
// With no implementations it returns an empty slice, never nil.
func (f *Factory) Identifiers(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	identifiers := make([]string, 0)
	for _, source := range f.sources {
		ids, err := source.Identifiers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list manager identifiers: %w", err)
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				f.logger.WarnContext(ctx, "manager identifier provided by multiple sources, ignoring duplicate", "identifier", id)
				continue
			}
			seen[id] = struct{}{}
			identifiers = append(identifiers, id)
		}
	}
	slices.Sort(identifiers)
	return identifiers, nil
}

// Instantiate constructs a new manager for identifier from the first source that provides it.
func (f *Factory) Instantiate(ctx context.Context, identifier string) (manager.Manager, error) {
	for _, source := range f.sources {
		m, err := source.Instantiate(ctx, identifier)
		if errors.Is(err, manager.ErrUnknownIdentifier) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate manager %q: %w", identifier, err)
		}
		f.logger.DebugContext(ctx, "instantiated manager", "identifier", identifier)
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", manager.ErrUnknownIdentifier, identifier)
}

// Close releases every source that holds resources.
func (f *Factory) Close(ctx context.Context) error {
	var errs []error
	for _, source := range f.sources {
		if closer, ok := source.(manager.Closer); ok {
			if err := closer.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
