package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"ocm.software/open-component-model/managerproxy/internal/flags/enum"
)

const (
	FlagFormat            = "format"
	FlagFormatShortHand   = "o"
	FlagFormatText        = "text"
	FlagFormatJSON        = "json"
	FlagFormatGoBuildInfo = "gobuildinfo"
)

// BuildVersion is set at link time.
var BuildVersion = "n/a"

// Info is the version information printed in JSON format.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Retrieve the version of the manager proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := enum.Get(cmd.Flags(), FlagFormat)
			if err != nil {
				return err
			}
			ver, ok := debug.ReadBuildInfo()
			if !ok {
				return fmt.Errorf("no build info available")
			}
			if BuildVersion != "n/a" {
				ver.Main.Version = BuildVersion
			}
			switch format {
			case FlagFormatJSON:
				return json.NewEncoder(cmd.OutOrStdout()).Encode(FromBuildInfo(ver))
			case FlagFormatGoBuildInfo:
				_, err = io.Copy(cmd.OutOrStdout(), strings.NewReader(ver.String()))
				return err
			default:
				_, err = fmt.Fprintln(cmd.OutOrStdout(), FromBuildInfo(ver).Version)
				return err
			}
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagFormat, FlagFormatShortHand, []string{FlagFormatText, FlagFormatJSON, FlagFormatGoBuildInfo}, "format of the version information")
	return cmd
}

// FromBuildInfo extracts the version information from the build info of the binary.
func FromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   bi.Main.Version,
		GoVersion: bi.GoVersion,
	}
	if info.Version == "" {
		info.Version = "(devel)"
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}
