package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHost       string
	flagUser       string
	flagStateDir   string
	flagNoJournal  bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	JSON    bool
	Verbose bool
	Quiet   bool
}

// CLIContext carries everything a subcommand needs. It is built once in
// PersistentPreRunE and stored in the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Config
	Logger *slog.Logger
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run. Commands
// only run after that hook, so a missing value is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("sharefile-go: command ran without CLIContext")
	}

	return cc
}

// newHTTPClient is swapped by tests to reach httptest servers.
var newHTTPClient = defaultHTTPClient

// defaultHTTPClient returns an HTTP client bounded by request_timeout.
func defaultHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout()}
}

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sharefile-go",
		Short:   "ShareFile account administration CLI",
		Long:    "Manage ShareFile employees, folders and uploads from the command line.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			flags := CLIFlags{JSON: flagJSON, Verbose: flagVerbose, Quiet: flagQuiet}
			cc := &CLIContext{
				Flags:  flags,
				Cfg:    cfg,
				Logger: buildLogger(cfg, flags),
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfigPath, "config", "", "config file path")
	pf.StringVar(&flagHost, "host", "", "ShareFile hostname (e.g. acme.sharefile.com)")
	pf.StringVar(&flagUser, "user", "", "ShareFile username")
	pf.StringVar(&flagStateDir, "state-dir", "", "directory for the token cache and journal")
	pf.BoolVar(&flagNoJournal, "no-journal", false, "do not record operations in the journal")
	pf.BoolVar(&flagJSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newAuthIDCmd())
	cmd.AddCommand(newEmployeesCmd())
	cmd.AddCommand(newFoldersCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain. Only flags the user actually set take part.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if cmd.Flags().Changed("host") {
		cli.Hostname = &flagHost
	}

	if cmd.Flags().Changed("user") {
		cli.Username = &flagUser
	}

	if cmd.Flags().Changed("state-dir") {
		cli.StateDir = &flagStateDir
	}

	if cmd.Flags().Changed("no-journal") {
		cli.NoJournal = &flagNoJournal
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// logOutput is where buildLogger writes; tests redirect it.
var logOutput io.Writer = os.Stderr

// buildLogger creates an slog.Logger from the resolved config and CLI flags.
// The config file provides the baseline; --verbose and --quiet override it.
// log_format "auto" picks text on a terminal and JSON otherwise.
func buildLogger(cfg *config.Config, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(format, logOutput) {
		return slog.New(slog.NewJSONHandler(logOutput, opts))
	}

	return slog.New(slog.NewTextHandler(logOutput, opts))
}

func useJSONLogs(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
