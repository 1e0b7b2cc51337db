// Package config loads the configuration document selected on the command line
// and makes it available to sub-commands through the command context.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
)

const (
	FlagConfig = "config"
	EnvConfig  = "MANAGERPROXY_CONFIG"
)

type contextKey struct{}

func RegisterConfigFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagConfig, "", fmt.Sprintf("path to a configuration file (defaults to $%s)", EnvConfig))
}

// Load reads the configuration file given by the config flag or the environment.
// Without either an empty document is returned.
func Load(cmd *cobra.Command) (*configv1.Document, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return &configv1.Document{}, nil
	}
	return configv1.Load(path)
}

func WithDocument(ctx context.Context, doc *configv1.Document) context.Context {
	return context.WithValue(ctx, contextKey{}, doc)
}

// FromContext returns the document stored by WithDocument, or an empty document.
func FromContext(ctx context.Context) *configv1.Document {
	if doc, ok := ctx.Value(contextKey{}).(*configv1.Document); ok && doc != nil {
		return doc
	}
	return &configv1.Document{}
}
