package driver

import (
	"fmt"
	"os"
)

// ClearState removes the persisted browser profile so the next launch
// starts logged out. A missing directory is not an error.
func ClearState(userDataDir string) error {
	if userDataDir == "" {
		return nil
	}
	if _, err := os.Stat(userDataDir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(userDataDir); err != nil {
		return fmt.Errorf("clear browser state: %w", err)
	}
	return nil
}
