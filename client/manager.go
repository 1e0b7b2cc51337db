package client

import (
	"context"

	"ocm.software/open-component-model/managerproxy/manager"
)

// RemoteManager is a manager instance living in the service.
// Closing it destroys the remote instance.
type RemoteManager struct {
	client *Client
	handle string
}

var (
	_ manager.Manager = (*RemoteManager)(nil)
	_ manager.Closer  = (*RemoteManager)(nil)
)

// Manager instantiates identifier in the service.
func (c *Client) Manager(ctx context.Context, identifier string) (*RemoteManager, error) {
	h, err := c.Instantiate(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &RemoteManager{client: c, handle: h}, nil
}

// Handle returns the handle of the remote instance.
func (m *RemoteManager) Handle() string {
	return m.handle
}

func (m *RemoteManager) Identifier(ctx context.Context) (string, error) {
	return m.client.Identifier(ctx, m.handle)
}

func (m *RemoteManager) DisplayName(ctx context.Context) (string, error) {
	return m.client.DisplayName(ctx, m.handle)
}

func (m *RemoteManager) Info(ctx context.Context) (manager.InfoDictionary, error) {
	return m.client.Info(ctx, m.handle)
}

func (m *RemoteManager) Settings(ctx context.Context, session *manager.HostSession) (manager.InfoDictionary, error) {
	return m.client.Settings(ctx, m.handle, sessionID(session))
}

func (m *RemoteManager) Initialize(ctx context.Context, settings manager.InfoDictionary, session *manager.HostSession) error {
	return m.client.Initialize(ctx, m.handle, settings, sessionID(session))
}

func (m *RemoteManager) Close(ctx context.Context) error {
	return m.client.Destroy(ctx, m.handle)
}

func sessionID(session *manager.HostSession) string {
	if session == nil {
		return ""
	}
	return session.ID
}
