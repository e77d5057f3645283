package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnsops/bookingbot/pkg/driver"
)

var clearStateCmd = &cobra.Command{
	Use:   "clear-state",
	Short: "Forget the saved portal login",
	Long: `Remove the persisted browser profile, including the portal login
session. The next 'bookingbot run' will require logging in again via
'bookingbot portal'.`,
	RunE: runClearState,
}

func init() {
	rootCmd.AddCommand(clearStateCmd)
}

func runClearState(cmd *cobra.Command, args []string) error {
	if err := driver.ClearState(cfg.Browser.UserDataDir); err != nil {
		return err
	}
	fmt.Printf("Browser state cleared (%s).\n", cfg.Browser.UserDataDir)
	return nil
}
