// Package cmd wires the bookingbot CLI.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnsops/bookingbot/internal/config"
	"github.com/tnsops/bookingbot/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "bookingbot",
	Short: "Upload booking spreadsheets into the corporate travel portal",
	Long: `bookingbot reads booking records from an Excel workbook, validates
them, and drives each one through the portal's multi-step creation form,
writing Done/Error back into the workbook's Status column.

Log in once with 'bookingbot portal'; the session is persisted and
reused by every subsequent run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
)

type version struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = version{Version: "dev", Commit: "HEAD", BuildDate: "unknown"}

// SetVersionInfo records build metadata injected at link time.
func SetVersionInfo(v, commit, buildDate string) {
	versionInfo.Version = v
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		if err := observability.Init(level, cfg.Logging.Format); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	}

	rootCmd.Version = versionInfo.Version
	rootCmd.SetVersionTemplate("bookingbot {{.Version}}\n")
}

// Execute runs the CLI. The context carries signal cancellation so an
// interrupt unwinds a running batch as a stop.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
