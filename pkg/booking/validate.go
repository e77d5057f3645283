package booking

import (
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted by row validation, tried in order. Day-first forms
// come before month-first: the input sheets are produced locally.
var dateLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2006-01-02",
	"2-1-2006",
	"02-01-2006",
	"1/2/2006",
	"01/02/2006",
}

// Time layouts accepted by row validation.
var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04:05 PM",
}

// Validate stamps Valid and Errors on a record: parseable date and time,
// required Driver/From/To, numeric Shift when present. Reason and Mobile are
// optional and never rejected here; a malformed mobile degrades at
// submission time instead.
func Validate(r *Record) {
	var errs []string

	if !ValidDate(r.Date) {
		errs = append(errs, "invalid or missing date")
	}
	if !ValidClock(r.Time) {
		errs = append(errs, "invalid or missing time")
	}
	if IsBlank(r.Driver) {
		errs = append(errs, "driver name is required")
	}
	if IsBlank(r.From) {
		errs = append(errs, "from location is required")
	}
	if IsBlank(r.To) {
		errs = append(errs, "to location is required")
	}
	if !IsBlank(r.Shift) {
		if _, err := strconv.Atoi(strings.TrimSpace(r.Shift)); err != nil {
			errs = append(errs, "shift must be a number")
		}
	}

	r.Errors = errs
	r.Valid = len(errs) == 0
}

// ValidDate reports whether the value parses as a calendar date in any
// accepted layout.
func ValidDate(s string) bool {
	if IsBlank(s) {
		return false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ValidClock reports whether the value is a well-formed time of day.
// Out-of-range values like "24:57" are rejected even though they match a
// layout shape.
func ValidClock(s string) bool {
	if IsBlank(s) {
		return false
	}
	s = strings.TrimSpace(s)

	if h, m, ok := splitClock(s); ok && (h > 23 || m > 59) {
		return false
	}

	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// splitClock extracts hour and minute from an "H:MM[:SS]" prefix without
// validating ranges.
func splitClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	mField := strings.Fields(parts[1]) // drop a trailing AM/PM
	if len(mField) == 0 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(mField[0])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
