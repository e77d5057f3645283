// Package sheet reads booking records from an xlsx workbook and writes
// per-row status back into it.
//
// The workbook contract: required columns Date, Time, Driver, From, To;
// optional Mobile, Reason, Shift and Status. A missing Status column is
// created and saved back before any processing begins.
package sheet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/ledger"
)

// Required workbook columns, matched case-insensitively after trimming.
var requiredColumns = []string{"Date", "Time", "Driver", "From", "To"}

// ErrMissingColumns indicates the workbook header lacks required columns.
var ErrMissingColumns = errors.New("workbook is missing required columns")

// statusHeader is the column created for persisted per-row status.
const statusHeader = "Status"

// Store is a workbook-backed record source and status sink.
//
// Each operation opens the file fresh and saves it whole, the same way the
// spreadsheet tooling that produces these files does. A mutex serializes
// writers because ledger persistence is asynchronous.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// Open validates that the workbook exists and is readable and returns a
// store bound to it.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	_ = f.Close()
	return &Store{path: path, logger: logger}, nil
}

// Path returns the backing workbook path.
func (s *Store) Path() string {
	return s.path
}

// EnsureStatusColumn adds an empty Status column and saves the workbook if
// the column is absent. Must run before processing so later row writes have
// a cell to land in.
func (s *Store) EnsureStatusColumn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	header, err := headerRow(f, sheet)
	if err != nil {
		return err
	}

	if _, ok := columnIndex(header, statusHeader); ok {
		return nil
	}

	cell, err := excelize.CoordinatesToCellName(len(header)+1, 1)
	if err != nil {
		return fmt.Errorf("status column coordinates: %w", err)
	}
	if err := f.SetCellStr(sheet, cell, statusHeader); err != nil {
		return fmt.Errorf("write status header: %w", err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Info("added status column to workbook", zap.String("path", s.path))
	return nil
}

// Records reads and validates every data row. Row numbers are the workbook's
// own 1-indexed rows (the header is row 1, the first record row 2), so they
// stay stable as a ledger key across reloads.
func (s *Store) Records() ([]booking.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s has no header row", s.path)
	}

	header := rows[0]
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	records := make([]booking.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		r := booking.Record{
			Date:      cellValue(header, row, "Date"),
			Time:      cellValue(header, row, "Time"),
			Driver:    cellValue(header, row, "Driver"),
			Mobile:    cellValue(header, row, "Mobile"),
			From:      cellValue(header, row, "From"),
			To:        cellValue(header, row, "To"),
			Reason:    cellValue(header, row, "Reason"),
			Shift:     cellValue(header, row, "Shift"),
			Status:    cellValue(header, row, statusHeader),
			RowNumber: i + 2,
		}
		booking.Validate(&r)
		records = append(records, r)
	}

	s.logger.Debug("read workbook",
		zap.String("path", s.path),
		zap.Int("rows", len(records)))
	return records, nil
}

// WriteStatus overwrites one row's Status cell and saves the whole
// workbook. Implements ledger.Sink; done and error map to the title-cased
// forms the operators expect to read in the sheet.
func (s *Store) WriteStatus(row int, status ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	header, err := headerRow(f, sheet)
	if err != nil {
		return err
	}
	col, ok := columnIndex(header, statusHeader)
	if !ok {
		return fmt.Errorf("workbook %s has no status column", s.path)
	}

	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("status cell coordinates: %w", err)
	}
	if err := f.SetCellStr(sheet, cell, statusText(status)); err != nil {
		return fmt.Errorf("write status cell: %w", err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	return nil
}

func statusText(status ledger.Status) string {
	switch status {
	case ledger.StatusDone:
		return "Done"
	case ledger.StatusError:
		return "Error"
	default:
		return string(status)
	}
}

func headerRow(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("workbook has no header row")
	}
	return rows[0], nil
}

// columnIndex finds a header column by name, case-insensitively. Returns
// the zero-based index.
func columnIndex(header []string, name string) (int, bool) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, true
		}
	}
	return 0, false
}

func missingColumns(header []string) []string {
	var missing []string
	for _, want := range requiredColumns {
		if _, ok := columnIndex(header, want); !ok {
			missing = append(missing, want)
		}
	}
	return missing
}

func cellValue(header, row []string, name string) string {
	idx, ok := columnIndex(header, name)
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
