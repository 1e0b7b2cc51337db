// Package manager defines the native asset manager capability set that is exposed
// through the proxy, together with the values that flow into it.
package manager

import (
	"context"
	"log/slog"
)

// Manager is a live, stateful asset manager instance.
// Instances are not required to be safe for concurrent use. Callers serialize access
// through the backend runtime.
type Manager interface {
	// Identifier returns the unique identifier of the implementation backing this instance.
	Identifier(ctx context.Context) (string, error)
	// DisplayName returns a human-readable name of the manager.
	DisplayName(ctx context.Context) (string, error)
	// Info returns static information about the manager, such as entity reference prefixes.
	Info(ctx context.Context) (InfoDictionary, error)
	// Settings returns the settings currently in effect for the manager.
	Settings(ctx context.Context, session *HostSession) (InfoDictionary, error)
	// Initialize applies settings and the host session to the manager.
	// Re-initialization is only supported if the implementation tolerates it.
	Initialize(ctx context.Context, settings InfoDictionary, session *HostSession) error
}

// Closer is implemented by managers that hold resources which must be released
// once the instance is destroyed.
type Closer interface {
	Close(ctx context.Context) error
}

// HostSession describes the caller on whose behalf a manager is invoked.
type HostSession struct {
	// ID identifies the host on the remote side.
	ID string
	// Logger attributes diagnostic output of the manager to the host session.
	Logger *slog.Logger
}

// NewHostSession creates a host session whose logger is derived from base and carries the session id.
func NewHostSession(id string, base *slog.Logger) *HostSession {
	if base == nil {
		base = slog.Default()
	}
	return &HostSession{
		ID:     id,
		Logger: base.With(slog.String("realm", "hostsession"), slog.String("hostSession", id)),
	}
}
