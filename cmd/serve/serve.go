package serve

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/cmd/internal/config"
	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
	"ocm.software/open-component-model/managerproxy/factory/wasm"
	"ocm.software/open-component-model/managerproxy/server"
)

const (
	FlagAddress          = "address"
	FlagMetricsAddress   = "metrics-address"
	FlagPluginPath       = "plugin-path"
	FlagDisableBuiltin   = "disable-builtin"
	FlagMaxInstances     = "max-instances"
	FlagStrictDestroy    = "strict-destroy"
	FlagShutdownTimeout  = "shutdown-timeout"
	FlagBackendQueueSize = "backend-queue-size"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve manager implementations over gRPC",
		Long: fmt.Sprintf(`Start the manager proxy service.

The service exposes every manager implementation linked into the binary and every
WebAssembly manager plugin found in the configured plugin paths and in $%s.
Calls into manager implementations are executed one at a time on a dedicated
backend thread. The service stops gracefully on SIGINT or SIGTERM.`, wasm.PluginPathEnv),
		Example: `  # Serve on the default address
  managerproxy serve

  # Serve plugins from a directory and expose metrics
  managerproxy serve --plugin-path ./plugins --metrics-address 127.0.0.1:9090`,
		Args:              cobra.NoArgs,
		RunE:              Serve,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.Flags().String(FlagAddress, "", fmt.Sprintf("listen address of the RPC service (default %q)", configv1.DefaultAddress))
	cmd.Flags().String(FlagMetricsAddress, "", "listen address of the metrics endpoint, disabled if empty")
	cmd.Flags().StringSlice(FlagPluginPath, nil, "directory or file to load manager plugins from, can be repeated")
	cmd.Flags().Bool(FlagDisableBuiltin, false, "do not serve the builtin managers")
	cmd.Flags().Int(FlagMaxInstances, 0, "maximum number of live manager instances, 0 means unlimited")
	cmd.Flags().Bool(FlagStrictDestroy, false, "fail when destroying an unknown handle")
	cmd.Flags().Duration(FlagShutdownTimeout, configv1.DefaultShutdownTimeout, "time to wait for in-flight calls on shutdown")
	cmd.Flags().Int(FlagBackendQueueSize, configv1.DefaultBackendQueueSize, "number of calls that may wait for the backend")

	return cmd
}

func Serve(cmd *cobra.Command, _ []string) error {
	cfg, err := ServerConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, server.WithLogger(slog.Default()))
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("manager proxy service failed: %w", err)
	}
	return nil
}

// ServerConfig builds the server configuration from the configuration document of cmd.
// Flags that were set explicitly take precedence.
func ServerConfig(cmd *cobra.Command) (*configv1.Config, error) {
	cfg, err := configv1.Lookup(config.FromContext(cmd.Context()))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed(FlagAddress) {
		if cfg.Address, err = flags.GetString(FlagAddress); err != nil {
			return nil, err
		}
	}
	if flags.Changed(FlagMetricsAddress) {
		if cfg.MetricsAddress, err = flags.GetString(FlagMetricsAddress); err != nil {
			return nil, err
		}
	}
	if flags.Changed(FlagPluginPath) {
		paths, err := flags.GetStringSlice(FlagPluginPath)
		if err != nil {
			return nil, err
		}
		cfg.PluginPaths = append(cfg.PluginPaths, paths...)
	}
	if flags.Changed(FlagDisableBuiltin) {
		if cfg.DisableBuiltin, err = flags.GetBool(FlagDisableBuiltin); err != nil {
			return nil, err
		}
	}
	if flags.Changed(FlagMaxInstances) {
		if cfg.MaxInstances, err = flags.GetInt(FlagMaxInstances); err != nil {
			return nil, err
		}
	}
	if flags.Changed(FlagStrictDestroy) {
		if cfg.StrictDestroy, err = flags.GetBool(FlagStrictDestroy); err != nil {
			return nil, err
		}
	}
	if flags.Changed(FlagShutdownTimeout) {
		timeout, err := flags.GetDuration(FlagShutdownTimeout)
		if err != nil {
			return nil, err
		}
		d := configv1.Duration(timeout)
		cfg.ShutdownTimeout = &d
	}
	if flags.Changed(FlagBackendQueueSize) {
		if cfg.BackendQueueSize, err = flags.GetInt(FlagBackendQueueSize); err != nil {
			return nil, err
		}
	}

	if cfg.MaxInstances < 0 {
		return nil, fmt.Errorf("--%s must not be negative", FlagMaxInstances)
	}
	if cfg.BackendQueueSize < 0 {
		return nil, fmt.Errorf("--%s must not be negative", FlagBackendQueueSize)
	}
	cfg.Default()
	return cfg, nil
}
