// Package remote connects client commands to a running manager proxy service.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/client"
)

const (
	FlagAddress = "address"
	FlagTimeout = "timeout"

	DefaultAddress = "127.0.0.1:50051"
	DefaultTimeout = 10 * time.Second
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().String(FlagAddress, DefaultAddress, "address of the manager proxy service")
	cmd.Flags().Duration(FlagTimeout, DefaultTimeout, "time to wait for the service to become ready")
}

// Connect creates a client for the service given by the address flag and
// waits until the service reports itself as serving.
func Connect(cmd *cobra.Command) (*client.Client, error) {
	address, err := cmd.Flags().GetString(FlagAddress)
	if err != nil {
		return nil, err
	}
	timeout, err := cmd.Flags().GetDuration(FlagTimeout)
	if err != nil {
		return nil, err
	}
	c, err := client.New(address)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := c.WaitForReady(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("manager proxy service at %s is not ready: %w", address, err)
	}
	return c, nil
}
