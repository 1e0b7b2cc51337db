// Package testserver runs a manager proxy server for tests of client side code.
package testserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
	"ocm.software/open-component-model/managerproxy/factory/wasm"
	"ocm.software/open-component-model/managerproxy/server"
)

// Start runs a server with cfg on a random local port until the test ends.
// Plugins from the environment are ignored.
func Start(t *testing.T, cfg *configv1.Config, opts ...server.Option) *server.Server {
	t.Helper()
	t.Setenv(wasm.PluginPathEnv, "")
	if cfg == nil {
		cfg = &configv1.Config{}
	}
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}

	srv := server.New(cfg, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		runErr = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		require.NoError(t, runErr)
	})

	select {
	case <-srv.Ready():
		if srv.Addr() == nil {
			<-stopped
			t.Fatalf("server failed to start: %v", runErr)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not become ready")
	}
	return srv
}
