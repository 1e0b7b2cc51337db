package describe

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/client"
	"ocm.software/open-component-model/managerproxy/cmd/internal/remote"
	"ocm.software/open-component-model/managerproxy/cmd/internal/render"
	"ocm.software/open-component-model/managerproxy/internal/flags/enum"
	"ocm.software/open-component-model/managerproxy/manager"
)

const (
	FlagOutput      = "output"
	FlagSetting     = "setting"
	FlagHostSession = "host-session"
)

// Description is the state of a manager instance as reported by the service.
type Description struct {
	Identifier  string                 `json:"identifier"         yaml:"identifier"`
	DisplayName string                 `json:"displayName"        yaml:"displayName"`
	Info        manager.InfoDictionary `json:"info"               yaml:"info"`
	Settings    manager.InfoDictionary `json:"settings,omitempty" yaml:"settings,omitempty"`
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe identifier",
		Short: "Describe a manager implementation of a manager proxy service",
		Long: `Instantiate the manager implementation, query its identity, info and settings
and destroy the instance again. With --setting the instance is initialized
with the given settings first.`,
		Example: `  # Describe the builtin memory manager
  managerproxy describe managerproxy.builtin.memory

  # Describe the manager after initializing it
  managerproxy describe managerproxy.builtin.memory --setting displayName=Scratch -o yaml`,
		Args:              cobra.ExactArgs(1),
		RunE:              Describe,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagOutput, "o", render.Formats(), "output format of the description")
	cmd.Flags().StringToString(FlagSetting, nil, "setting to initialize the manager with, as key=value")
	cmd.Flags().String(FlagHostSession, "", "identifier of the host session the calls belong to")
	remote.RegisterFlags(cmd)
	return cmd
}

func Describe(cmd *cobra.Command, args []string) error {
	output, err := enum.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}
	raw, err := cmd.Flags().GetStringToString(FlagSetting)
	if err != nil {
		return err
	}
	session, err := cmd.Flags().GetString(FlagHostSession)
	if err != nil {
		return err
	}
	c, err := remote.Connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	desc, err := Run(cmd.Context(), c, args[0], ParseSettings(raw), session)
	if err != nil {
		return err
	}
	return Render(cmd, output, desc)
}

// Run instantiates the implementation id, initializes it with settings if any are given,
// and describes it. The instance is destroyed before Run returns.
func Run(ctx context.Context, c *client.Client, id string, settings manager.InfoDictionary, session string) (_ *Description, err error) {
	handle, err := c.Instantiate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate %s: %w", id, err)
	}
	defer func() {
		err = errors.Join(err, c.Destroy(ctx, handle))
	}()

	if len(settings) > 0 {
		if err := c.Initialize(ctx, handle, settings, session); err != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", id, err)
		}
	}

	desc := &Description{}
	if desc.Identifier, err = c.Identifier(ctx, handle); err != nil {
		return nil, err
	}
	if desc.DisplayName, err = c.DisplayName(ctx, handle); err != nil {
		return nil, err
	}
	if desc.Info, err = c.Info(ctx, handle); err != nil {
		return nil, err
	}
	if desc.Settings, err = c.Settings(ctx, handle, session); err != nil {
		return nil, err
	}
	return desc, nil
}

// ParseSettings converts key=value pairs into settings. Values that parse as integer, float
// or bool are stored as such, everything else as string.
func ParseSettings(raw map[string]string) manager.InfoDictionary {
	settings := make(manager.InfoDictionary, len(raw))
	for key, value := range raw {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			settings[key] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			settings[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			settings[key] = b
		} else {
			settings[key] = value
		}
	}
	return settings
}

func Render(cmd *cobra.Command, output string, desc *Description) error {
	if output != render.OutputFormatTable.String() {
		return render.Object(cmd.OutOrStdout(), output, desc)
	}
	t := render.NewTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Field", "Key", "Value"})
	t.AppendRow(table.Row{"identifier", "", desc.Identifier})
	t.AppendRow(table.Row{"displayName", "", desc.DisplayName})
	appendDictionary(t, "info", desc.Info)
	appendDictionary(t, "settings", desc.Settings)
	t.Render()
	return nil
}

func appendDictionary(t table.Writer, field string, dict manager.InfoDictionary) {
	for _, key := range slices.Sorted(maps.Keys(dict)) {
		t.AppendRow(table.Row{field, key, fmt.Sprint(dict[key])})
	}
}
