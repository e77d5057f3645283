package cmd

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/internal/observability"
	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/sheet"
)

// resolveWorkbookPath picks the workbook to operate on: an explicit
// --file wins, otherwise the newest file matching --glob.
func resolveWorkbookPath(file, glob string) (string, error) {
	if file != "" {
		return file, nil
	}
	if glob == "" {
		return "", errors.New("provide --file or --glob")
	}
	path, err := sheet.SelectNewest(glob)
	if err != nil {
		if errors.Is(err, sheet.ErrNoWorkbooks) {
			return "", fmt.Errorf("no workbook matches %q", glob)
		}
		return "", err
	}
	observability.CLILogger.Info("selected newest workbook",
		zap.String("glob", glob),
		zap.String("path", path))
	return path, nil
}

// loadRecords opens the workbook and reads its rows.
func loadRecords(file, glob string) (*sheet.Store, []booking.Record, error) {
	path, err := resolveWorkbookPath(file, glob)
	if err != nil {
		return nil, nil, err
	}
	store, err := sheet.Open(path, observability.CLILogger)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	records, err := store.Records()
	if err != nil {
		return nil, nil, fmt.Errorf("read workbook: %w", err)
	}
	return store, records, nil
}
