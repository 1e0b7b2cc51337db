// Package client provides a Go client for the manager proxy service.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/wire"
)

// Client talks to a manager proxy service.
// Errors returned by its methods can be classified with errors.Is against the manager sentinels.
type Client struct {
	conn   *grpc.ClientConn
	rpc    v1.ManagerProxyClient
	health grpc_health_v1.HealthClient
}

// New connects to the service at target. Without further options the connection is insecure,
// matching the default of the service.
func New(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}
	c := NewFromConn(conn)
	c.conn = conn
	return c, nil
}

// NewFromConn creates a client using an existing connection. Close does not close cc.
func NewFromConn(cc grpc.ClientConnInterface) *Client {
	return &Client{
		rpc:    v1.NewManagerProxyClient(cc),
		health: grpc_health_v1.NewHealthClient(cc),
	}
}

// Close closes the connection if it was created by New.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// WaitForReady blocks until the service reports SERVING or ctx ends.
func (c *Client) WaitForReady(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("service is %s", resp.GetStatus())
		}
		return nil
	}, backoff.WithContext(b, ctx))
}

// Identifiers lists the identifiers of all available manager implementations.
func (c *Client) Identifiers(ctx context.Context) ([]string, error) {
	resp, err := c.rpc.ListIdentifiers(ctx, &v1.ListIdentifiersRequest{})
	if err != nil {
		return nil, v1.FromError(err)
	}
	if resp.Identifiers == nil {
		return []string{}, nil
	}
	return resp.Identifiers, nil
}

// Instantiate creates a manager instance and returns its handle.
func (c *Client) Instantiate(ctx context.Context, identifier string) (string, error) {
	resp, err := c.rpc.Instantiate(ctx, &v1.InstantiateRequest{Identifier: identifier})
	if err != nil {
		return "", v1.FromError(err)
	}
	return resp.Handle, nil
}

// Destroy destroys the manager instance referenced by handle.
func (c *Client) Destroy(ctx context.Context, handle string) error {
	_, err := c.rpc.Destroy(ctx, &v1.DestroyRequest{Handle: handle})
	return v1.FromError(err)
}

func (c *Client) Identifier(ctx context.Context, handle string) (string, error) {
	resp, err := c.rpc.GetIdentifier(ctx, &v1.GetIdentifierRequest{Handle: handle})
	if err != nil {
		return "", v1.FromError(err)
	}
	return resp.Identifier, nil
}

func (c *Client) DisplayName(ctx context.Context, handle string) (string, error) {
	resp, err := c.rpc.GetDisplayName(ctx, &v1.GetDisplayNameRequest{Handle: handle})
	if err != nil {
		return "", v1.FromError(err)
	}
	return resp.DisplayName, nil
}

func (c *Client) Info(ctx context.Context, handle string) (manager.InfoDictionary, error) {
	resp, err := c.rpc.GetInfo(ctx, &v1.GetInfoRequest{Handle: handle})
	if err != nil {
		return nil, v1.FromError(err)
	}
	return wire.DecodeSettings(resp.Info)
}

func (c *Client) Settings(ctx context.Context, handle, hostSession string) (manager.InfoDictionary, error) {
	resp, err := c.rpc.GetSettings(ctx, &v1.GetSettingsRequest{
		Handle:      handle,
		HostSession: v1.HostSession{ID: hostSession},
	})
	if err != nil {
		return nil, v1.FromError(err)
	}
	return wire.DecodeSettings(resp.Settings)
}

func (c *Client) Initialize(ctx context.Context, handle string, settings manager.InfoDictionary, hostSession string) error {
	encoded, err := wire.EncodeSettings(settings)
	if err != nil {
		return err
	}
	_, err = c.rpc.Initialize(ctx, &v1.InitializeRequest{
		Handle:      handle,
		Settings:    encoded,
		HostSession: v1.HostSession{ID: hostSession},
	})
	return v1.FromError(err)
}
