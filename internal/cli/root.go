package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cryptodash/internal/config"
	"cryptodash/internal/infrastructure"
)

// env carries what every subcommand needs once the root has run.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewRootCmd builds the cryptodash command tree. Logs always go to errOut so
// out carries only command output.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	e := &env{in: in, out: out, errOut: errOut}

	var configFile, logLevel string

	rootCmd := &cobra.Command{
		Use:   "cryptodash",
		Short: "Crypto price dashboard",
		Long: `cryptodash loads a daily OHLC price table for several coins, derives
change and volatility metrics, and presents them as a web dashboard, a
terminal summary or an export file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			e.cfg = cfg

			logger, err := infrastructure.InitializeLoggerTo(cfg.Logging, e.errOut)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.logger = infrastructure.WithComponent(logger, "cli")
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			return nil
		},
	}

	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(e))
	rootCmd.AddCommand(newSummaryCmd(e))
	rootCmd.AddCommand(newExportCmd(e))
	rootCmd.AddCommand(newVersionCmd(e))

	return rootCmd
}

// Execute runs the command tree against the process streams and returns the
// exit code.
func Execute() int {
	cmd := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
