package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	SetVersionInfo("1.0.0", "abc123", "2026-08-30")
	assert.Equal(t, "1.0.0", versionInfo.Version)
	assert.Equal(t, "abc123", versionInfo.Commit)
	assert.Equal(t, "2026-08-30", versionInfo.BuildDate)
}

func writeEmptyWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestResolveWorkbookPathExplicitFileWins(t *testing.T) {
	path, err := resolveWorkbookPath("bookings.xlsx", "ignored/*.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "bookings.xlsx", path)
}

func TestResolveWorkbookPathGlobPicksNewest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.xlsx")
	newer := filepath.Join(dir, "newer.xlsx")
	writeEmptyWorkbook(t, older)
	writeEmptyWorkbook(t, newer)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	path, err := resolveWorkbookPath("", filepath.Join(dir, "*.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, newer, path)
}

func TestResolveWorkbookPathNeedsFileOrGlob(t *testing.T) {
	_, err := resolveWorkbookPath("", "")
	assert.Error(t, err)
}

func TestResolveWorkbookPathNoMatches(t *testing.T) {
	_, err := resolveWorkbookPath("", filepath.Join(t.TempDir(), "*.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workbook matches")
}
