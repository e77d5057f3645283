package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnsops/bookingbot/internal/observability"
	"github.com/tnsops/bookingbot/pkg/driver"
)

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Open the portal for manual login",
	Long: `Open the portal in a visible browser so you can log in. The session
is saved into the browser profile and reused by 'bookingbot run' until
it expires or 'bookingbot clear-state' removes it.

Close this command with Ctrl+C once you are logged in.`,
	RunE: runPortal,
}

func init() {
	rootCmd.AddCommand(portalCmd)
}

func runPortal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Login needs a visible window regardless of the configured mode.
	client, err := driver.Launch(ctx, driver.Config{
		UserDataDir: cfg.Browser.UserDataDir,
		Headless:    false,
	}, observability.CLILogger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Navigate(ctx, cfg.Portal.TripsURL); err != nil {
		return err
	}

	fmt.Println("Log in to the portal in the browser window.")
	fmt.Println("Press Ctrl+C here when finished; the session will be saved.")
	<-ctx.Done()
	return nil
}
