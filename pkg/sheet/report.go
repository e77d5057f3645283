package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tnsops/bookingbot/pkg/booking"
)

var reportHeader = []string{
	"Row", "Date", "Time", "Driver", "Mobile", "From", "To",
	"Reason", "Shift", "Valid", "Errors",
}

// WriteValidationReport exports a per-row validation summary to a new
// workbook so operators can fix the source file before a run.
func WriteValidationReport(records []booking.Record, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	for i, h := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("report coordinates: %w", err)
		}
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}

	for i, r := range records {
		valid := "Yes"
		if !r.Valid {
			valid = "No"
		}
		values := []any{
			r.RowNumber, r.Date, r.Time, r.Driver, r.Mobile, r.From, r.To,
			r.Reason, r.Shift, valid, strings.Join(r.Errors, "; "),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("report coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write report row %d: %w", r.RowNumber, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save validation report: %w", err)
	}
	return nil
}
