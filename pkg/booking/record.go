// Package booking defines the booking record model and upstream row
// validation.
//
// A Record is one row of the input workbook. Records are immutable once
// validated; only their ledger status changes as a batch progresses.
package booking

import (
	"fmt"
	"strings"
)

// Record is one booking row read from the backing workbook.
type Record struct {
	Date   string
	Time   string
	Driver string
	Mobile string // optional
	From   string
	To     string
	Reason string // optional
	Shift  string // optional, numeric when present

	// RowNumber is the 1-indexed workbook row (header is row 1), stable
	// across the run and used as the ledger key.
	RowNumber int

	// Status is the raw status cell value at load time. The ledger owns
	// status from then on.
	Status string

	Valid  bool
	Errors []string
}

// IsBlank reports whether a cell value is effectively empty. The literal
// string "nan" appears in workbooks exported through pandas pipelines and
// is treated as blank.
func IsBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}

// Summary aggregates validation results over a set of records.
type Summary struct {
	Total    int
	Valid    int
	Invalid  int
	Problems []string // "Row N: reason" per failed check
}

// Summarize validates nothing; it counts the validation already stamped on
// each record and collects the per-row reasons.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Valid {
			s.Valid++
			continue
		}
		s.Invalid++
		for _, e := range r.Errors {
			s.Problems = append(s.Problems, rowProblem(r.RowNumber, e))
		}
	}
	return s
}

func rowProblem(row int, reason string) string {
	return fmt.Sprintf("Row %d: %s", row, reason)
}
