package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Record{
		Date:   "4/9/2025",
		Time:   "02:09",
		Driver: "MAJCEN Dennis",
		From:   "NME",
		To:     "CPS03O",
		Shift:  "1001",
	}

	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr string
	}{
		{"valid row", func(r *Record) {}, ""},
		{"valid without shift", func(r *Record) { r.Shift = "" }, ""},
		{"valid iso date", func(r *Record) { r.Date = "2025-10-30" }, ""},
		{"valid 12h time", func(r *Record) { r.Time = "2:09 AM" }, ""},
		{"missing date", func(r *Record) { r.Date = "" }, "invalid or missing date"},
		{"nan date", func(r *Record) { r.Date = "nan" }, "invalid or missing date"},
		{"garbage date", func(r *Record) { r.Date = "soon" }, "invalid or missing date"},
		{"missing time", func(r *Record) { r.Time = "" }, "invalid or missing time"},
		{"hour out of range", func(r *Record) { r.Time = "24:57" }, "invalid or missing time"},
		{"minute out of range", func(r *Record) { r.Time = "12:75" }, "invalid or missing time"},
		{"missing driver", func(r *Record) { r.Driver = " " }, "driver name is required"},
		{"nan driver", func(r *Record) { r.Driver = "NaN" }, "driver name is required"},
		{"missing from", func(r *Record) { r.From = "" }, "from location is required"},
		{"missing to", func(r *Record) { r.To = "" }, "to location is required"},
		{"non-numeric shift", func(r *Record) { r.Shift = "day" }, "shift must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			Validate(&r)

			if tt.wantErr == "" {
				assert.True(t, r.Valid, "errors: %v", r.Errors)
				assert.Empty(t, r.Errors)
			} else {
				assert.False(t, r.Valid)
				assert.Contains(t, r.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	r := Record{}
	Validate(&r)

	require.False(t, r.Valid)
	assert.Len(t, r.Errors, 5) // date, time, driver, from, to
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank("nan"))
	assert.True(t, IsBlank("NaN"))
	assert.False(t, IsBlank("0"))
	assert.False(t, IsBlank("nano"))
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{RowNumber: 2, Valid: true},
		{RowNumber: 3, Valid: false, Errors: []string{"invalid or missing date"}},
		{RowNumber: 4, Valid: false, Errors: []string{"driver name is required", "to location is required"}},
	}

	s := Summarize(records)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, 2, s.Invalid)
	assert.Equal(t, []string{
		"Row 3: invalid or missing date",
		"Row 4: driver name is required",
		"Row 4: to location is required",
	}, s.Problems)
}
