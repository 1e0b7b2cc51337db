package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/managerproxy/cmd/describe"
	"ocm.software/open-component-model/managerproxy/cmd/identifiers"
	"ocm.software/open-component-model/managerproxy/cmd/internal/config"
	"ocm.software/open-component-model/managerproxy/cmd/serve"
	"ocm.software/open-component-model/managerproxy/cmd/version"
	"ocm.software/open-component-model/managerproxy/log"
	logv1 "ocm.software/open-component-model/managerproxy/log/config/v1"
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := New().Execute(); err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "managerproxy [sub-command]",
		Short: "Serve asset manager implementations to remote hosts",
		Long: `The manager proxy loads asset manager implementations, either linked into the
binary or as WebAssembly plugins, and offers them to remote hosts over gRPC.
Hosts instantiate managers by identifier and address the instances through
opaque handles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	config.RegisterConfigFlag(cmd)
	log.RegisterLoggingFlags(cmd)

	cmd.AddCommand(serve.New())
	cmd.AddCommand(identifiers.New())
	cmd.AddCommand(describe.New())
	cmd.AddCommand(version.New())

	return cmd
}

// setup loads the configuration and installs the logger for all sub-commands.
func setup(cmd *cobra.Command, _ []string) error {
	doc, err := config.Load(cmd)
	if err != nil {
		return err
	}
	logCfg, err := logv1.Lookup(doc)
	if err != nil {
		return fmt.Errorf("could not retrieve logging configuration: %w", err)
	}
	logger, err := log.GetBaseLogger(cmd, logCfg)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	slog.SetDefault(logger)

	ctx := config.WithDocument(cmd.Context(), doc)
	cmd.SetContext(slogcontext.NewCtx(ctx, logger))
	return nil
}
