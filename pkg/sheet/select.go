package sheet

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoWorkbooks indicates a selection pattern matched no files.
var ErrNoWorkbooks = errors.New("no workbooks match pattern")

// SelectNewest resolves a doublestar glob (e.g. "bookings/**/*.xlsx") and
// returns the most recently modified match. Operators drop exported sheets
// into a watched directory; the newest file is the one to process.
func SelectNewest(pattern string) (string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("bad workbook pattern %q: %w", pattern, err)
	}

	var (
		newest   string
		newestAt time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestAt) {
			newest = m
			newestAt = info.ModTime()
		}
	}

	if newest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoWorkbooks, pattern)
	}
	return newest, nil
}
