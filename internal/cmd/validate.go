package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnsops/bookingbot/pkg/booking"
	"github.com/tnsops/bookingbot/pkg/sheet"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a workbook without touching the portal",
	Long: `Validate every row of a workbook and report the problems found.
No browser is launched and nothing is written back to the workbook.

Example:
  bookingbot validate --file bookings.xlsx
  bookingbot validate --glob "downloads/*.xlsx" --report report.xlsx`,
	RunE: runValidate,
}

var (
	validateFile   string
	validateGlob   string
	validateReport string
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Workbook to validate")
	validateCmd.Flags().StringVarP(&validateGlob, "glob", "g", "", "Glob pattern; the newest match is used")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "Write a validation report workbook to this path")
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, records, err := loadRecords(validateFile, validateGlob)
	if err != nil {
		return err
	}

	summary := booking.Summarize(records)
	fmt.Printf("Rows: %d  Valid: %d  Invalid: %d\n", summary.Total, summary.Valid, summary.Invalid)
	for _, p := range summary.Problems {
		fmt.Println("  " + p)
	}

	if validateReport != "" {
		if err := sheet.WriteValidationReport(records, validateReport); err != nil {
			return fmt.Errorf("write validation report: %w", err)
		}
		fmt.Printf("Report written to %s\n", validateReport)
	}

	if summary.Invalid > 0 {
		return fmt.Errorf("%d invalid rows", summary.Invalid)
	}
	return nil
}
