// Package log builds the process logger from command line flags and logging configuration.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/internal/flags/enum"
	v1 "ocm.software/open-component-model/managerproxy/log/config/v1"
	"ocm.software/open-component-model/managerproxy/log/filter"
)

const (
	FlagLevel  = "loglevel"
	FlagFormat = "logformat"
	FlagFilter = "logfilter"
)

func RegisterLoggingFlags(cmd *cobra.Command) {
	enum.Var(cmd.PersistentFlags(), FlagLevel, []string{
		"info",
		"debug",
		"warn",
		"error",
	}, "set the log level")
	enum.VarP(cmd.PersistentFlags(), FlagFormat, "f", []string{"text", "json"}, "set the log format")
	cmd.PersistentFlags().StringSlice(FlagFilter, nil, "set the minimum log level of a realm, e.g. backend=warn")
}

// GetBaseLogger creates the logger configured by the logging flags of cmd. Settings of cfg apply
// unless the corresponding flag was set explicitly. cfg may be nil.
// Logs are written to the error stream of cmd so command output stays parsable.
func GetBaseLogger(cmd *cobra.Command, cfg *v1.Config) (*slog.Logger, error) {
	level, err := GetLoggerLevel(cmd, cfg)
	if err != nil {
		return nil, err
	}
	format, err := enum.Get(cmd.Flags(), FlagFormat)
	if err != nil {
		return nil, err
	}
	handler, err := newHandler(cmd.ErrOrStderr(), format, level)
	if err != nil {
		return nil, err
	}

	realmFilters, err := filter.RealmFiltersFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get realm filters from config: %w", err)
	}
	raw, err := cmd.Flags().GetStringSlice(FlagFilter)
	if err != nil {
		return nil, err
	}
	flagFilters, err := filter.KeyFiltersFromStrings(raw...)
	if err != nil {
		return nil, err
	}
	maps.Copy(realmFilters, flagFilters)
	if len(realmFilters) > 0 {
		handler = filter.New(handler, filter.LoggingKeyRealm, realmFilters)
	}

	return slog.New(handler), nil
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
}

func GetLoggerLevel(cmd *cobra.Command, cfg *v1.Config) (slog.Level, error) {
	logLevel, err := enum.Get(cmd.Flags(), FlagLevel)
	if err != nil {
		return slog.LevelInfo, err
	}
	if !cmd.Flags().Changed(FlagLevel) && cfg != nil && cfg.Settings.DefaultLevel != "" {
		logLevel = cfg.Settings.DefaultLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", logLevel)
	}
	return level, nil
}
