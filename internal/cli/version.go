package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"commit" yaml:"commit"`
	BuildDate string `json:"built" yaml:"built"`
}

func newVersionCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs neither config nor a backend.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := validateOutput(rt.output); err != nil {
				return &exitError{code: ExitConfigError, err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
			return render(cmd.OutOrStdout(), rt.output, info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "uplink version %s\n  commit: %s\n  built:  %s\n", info.Version, info.GitCommit, info.BuildDate)
				return err
			})
		},
	}
}
