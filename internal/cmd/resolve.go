package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnsops/bookingbot/internal/observability"
	"github.com/tnsops/bookingbot/pkg/address"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve CODE [CODE...]",
	Short: "Resolve location codes against the lookup table",
	Long: `Resolve one or more location codes the way 'run' would, printing the
resulting address strings. Useful for checking the lookup table before
a batch.

Example:
  bookingbot resolve NMED FSH
  bookingbot resolve "123 Example St"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	entries, err := address.LoadTable(cfg.Locations)
	if err != nil {
		return fmt.Errorf("load location table: %w", err)
	}
	if entries == nil {
		fmt.Printf("Location table %s not found; codes pass through unchanged.\n", cfg.Locations)
	}
	resolver := address.NewResolver(entries, observability.CLILogger)

	for _, code := range args {
		fmt.Printf("%s -> %s\n", code, resolver.Resolve(code))
	}
	return nil
}
