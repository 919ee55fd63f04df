package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-uplink/internal/app"
	"github.com/spf13/cobra"
)

func newStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the connection to the backend",
		Long: `Call GET / on the backend and print its greeting.

Exits with code 4 when the backend cannot be reached or answers with an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := rt.app.Status(cmd.Context())
			if err := render(cmd.OutOrStdout(), rt.output, report, func(w io.Writer) error {
				return printStatus(w, report)
			}); err != nil {
				return err
			}
			if !report.Connected {
				return &exitError{code: ExitNetworkError, err: errors.New(report.Error), silent: true}
			}
			return nil
		},
	}
}

func printStatus(w io.Writer, report app.StatusReport) error {
	if report.Connected {
		_, err := fmt.Fprintf(w, "Connected to %s\nMessage: %s\n", report.BaseURL, report.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "Not connected to %s\nError: %s\n%s\n", report.BaseURL, report.Error, report.Hint)
	return err
}

func newHealthCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the backend health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := rt.app.HealthCheck(cmd.Context())
			if err != nil {
				return backendError(err)
			}
			return render(cmd.OutOrStdout(), rt.output, health, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Backend health: %s\n", health.Status)
				return err
			})
		},
	}
}
