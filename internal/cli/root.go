// Package cli provides the command-line interface for uplink.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-uplink/internal/app"
	"github.com/samvad-hq/samvad-uplink/internal/config"
	"github.com/samvad-hq/samvad-uplink/internal/logger"
	"github.com/spf13/cobra"
)

// Version information (set by build flags in release builds).
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// runtime is the per-invocation state shared by subcommands.
type runtime struct {
	loadConfig func() (*config.Config, error)
	output     string

	cfg *config.Config
	log *logger.ZapLogger
	app *app.App
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "uplink",
		Short: "Terminal client for the samvad upload backend",
		Long: `uplink talks to the samvad backend over HTTP.

It checks that the backend is reachable, uploads images to
/api/upload-image and issues ad-hoc JSON requests. The backend root
defaults to http://127.0.0.1:8000 and is overridden with API_BASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if isBuiltinCmd(cmd) {
				return nil
			}
			return rt.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&rt.output, "output", "o", outputText, "output format: text, json or yaml")

	root.AddCommand(
		newStatusCmd(rt),
		newHealthCmd(rt),
		newUploadCmd(rt),
		newGetCmd(rt),
		newPostCmd(rt),
		newHistoryCmd(rt),
		newVersionCmd(rt),
	)
	return root
}

// isBuiltinCmd reports whether cmd is one of cobra's help or completion commands.
func isBuiltinCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// setup loads configuration and builds the app for commands that talk to the backend.
func (rt *runtime) setup(ctx context.Context) error {
	if err := validateOutput(rt.output); err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	if rt.app != nil {
		return nil
	}

	cfg, err := rt.loadConfig()
	if err != nil {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("load config: %w", err)}
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("init logger: %w", err)}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = log.Close()
		return &exitError{code: ExitConfigError, err: err}
	}

	rt.cfg = cfg
	rt.log = log
	rt.app = a
	return nil
}

// close releases the app and flushes the logger.
func (rt *runtime) close() error {
	var errs []error
	if rt.app != nil {
		errs = append(errs, rt.app.Close())
		rt.app = nil
	}
	if rt.log != nil {
		// Sync on stderr fails with EINVAL on some platforms; it carries no data loss.
		_ = rt.log.Close()
		rt.log = nil
	}
	return errors.Join(errs...)
}

// run executes root and maps the outcome onto a process exit code.
func run(ctx context.Context, rt *runtime, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if cerr := rt.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if !errors.As(err, &ee) || !ee.silent {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

// Execute runs the uplink command tree and returns the exit code.
func Execute(ctx context.Context) int {
	rt := &runtime{loadConfig: config.Load}
	return run(ctx, rt, newRootCmd(rt))
}
