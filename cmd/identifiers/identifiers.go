package identifiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/client"
	"ocm.software/open-component-model/managerproxy/cmd/internal/remote"
	"ocm.software/open-component-model/managerproxy/cmd/internal/render"
	"ocm.software/open-component-model/managerproxy/internal/flags/enum"
)

const (
	FlagOutput = "output"

	OutputFormatWide = "wide"
)

// Implementation describes a manager implementation offered by the service.
type Implementation struct {
	Identifier  string `json:"identifier"            yaml:"identifier"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identifiers",
		Short: "List the manager implementations offered by a manager proxy service",
		Example: `  # List identifiers of the service on the default address
  managerproxy identifiers

  # Include display names, which instantiates every manager once
  managerproxy identifiers -o wide`,
		Args:              cobra.NoArgs,
		RunE:              ListIdentifiers,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagOutput, "o", render.Formats(OutputFormatWide), "output format of the identifier list")
	remote.RegisterFlags(cmd)
	return cmd
}

func ListIdentifiers(cmd *cobra.Command, _ []string) error {
	output, err := enum.Get(cmd.Flags(), FlagOutput)
	if err != nil {
		return fmt.Errorf("getting output flag failed: %w", err)
	}
	c, err := remote.Connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	impls, err := Collect(cmd.Context(), c, output == OutputFormatWide)
	if err != nil {
		return err
	}
	return Render(cmd, output, impls)
}

// Collect lists the implementations of the service. With displayNames set, every
// implementation is instantiated once to query its display name.
func Collect(ctx context.Context, c *client.Client, displayNames bool) ([]Implementation, error) {
	ids, err := c.Identifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	impls := make([]Implementation, 0, len(ids))
	for _, id := range ids {
		impl := Implementation{Identifier: id}
		if displayNames {
			if impl.DisplayName, err = displayName(ctx, c, id); err != nil {
				return nil, err
			}
		}
		impls = append(impls, impl)
	}
	return impls, nil
}

func displayName(ctx context.Context, c *client.Client, id string) (_ string, err error) {
	m, err := c.Manager(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to instantiate %s: %w", id, err)
	}
	defer func() {
		err = errors.Join(err, m.Close(ctx))
	}()
	return m.DisplayName(ctx)
}

func Render(cmd *cobra.Command, output string, impls []Implementation) error {
	return render.List(cmd.OutOrStdout(), output, impls, func(t table.Writer, impls []Implementation) {
		if output == OutputFormatWide {
			t.AppendHeader(table.Row{"Identifier", "Display Name"})
			for _, impl := range impls {
				t.AppendRow(table.Row{impl.Identifier, impl.DisplayName})
			}
			return
		}
		t.AppendHeader(table.Row{"Identifier"})
		for _, impl := range impls {
			t.AppendRow(table.Row{impl.Identifier})
		}
	})
}
