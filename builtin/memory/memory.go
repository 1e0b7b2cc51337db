// Package memory provides a manager implementation that keeps all state in memory.
// It is linked into the proxy and serves as reference implementation for plugins.
package memory

import (
	"context"
	"fmt"

	"ocm.software/open-component-model/managerproxy/factory"
	"ocm.software/open-component-model/managerproxy/manager"
)

const (
	// Identifier is the identifier of the in-memory manager.
	Identifier = "managerproxy.builtin.memory"
	// DefaultDisplayName is reported until the settings override it.
	DefaultDisplayName = "In-Memory Manager"
	// DisplayNameKey is the settings key overriding the display name.
	DisplayNameKey = "displayName"
	// EntityReferencePrefix is the prefix of entity references handled by the manager.
	EntityReferencePrefix = "memory://"
)

// Register adds the in-memory manager to registry.
func Register(registry *factory.Registry) error {
	return registry.Register(Identifier, func() manager.Manager { return New() })
}

// Manager is the in-memory manager.
type Manager struct {
	settings    manager.InfoDictionary
	hostSession string
	closed      bool
}

var (
	_ manager.Manager = (*Manager)(nil)
	_ manager.Closer  = (*Manager)(nil)
)

// New creates an uninitialized manager.
func New() *Manager {
	return &Manager{settings: manager.InfoDictionary{}}
}

func (m *Manager) Identifier(context.Context) (string, error) {
	return Identifier, nil
}

func (m *Manager) DisplayName(context.Context) (string, error) {
	if name, ok := m.settings.String(DisplayNameKey); ok && name != "" {
		return name, nil
	}
	return DefaultDisplayName, nil
}

func (m *Manager) Info(context.Context) (manager.InfoDictionary, error) {
	return manager.InfoDictionary{
		"entityReferencePrefix": EntityReferencePrefix,
		"builtin":               true,
	}, nil
}

func (m *Manager) Settings(context.Context, *manager.HostSession) (manager.InfoDictionary, error) {
	if m.closed {
		return nil, fmt.Errorf("manager is closed")
	}
	return m.settings.Clone(), nil
}

// Initialize replaces the settings of the manager. Unknown keys are kept as they are.
func (m *Manager) Initialize(ctx context.Context, settings manager.InfoDictionary, session *manager.HostSession) error {
	if m.closed {
		return fmt.Errorf("manager is closed")
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	m.settings = settings.Clone()
	if session != nil {
		m.hostSession = session.ID
		session.Logger.InfoContext(ctx, "in-memory manager initialized", "settings", len(m.settings))
	}
	return nil
}

// HostSession returns the id of the host session of the last initialization.
func (m *Manager) HostSession() string {
	return m.hostSession
}

// Close marks the manager as closed. Further calls that depend on state fail.
func (m *Manager) Close(context.Context) error {
	m.closed = true
	return nil
}
