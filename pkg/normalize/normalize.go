// Package normalize converts heterogeneous workbook values into the exact
// textual forms the booking form accepts.
//
// Every function degrades instead of failing: a value no heuristic can parse
// is passed through verbatim with ok=false so the caller can expect the
// remote field validation to reject it.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateLayouts are tried in order before falling back to permissive parsing.
// The portal's sheets are mostly day-first; ISO and month-first forms show
// up in files touched by other tools.
var dateLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2006-01-02",
	"2-1-2006",
	"02-01-2006",
	"1/2/2006",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// displayDateLayout is the textual form the portal's date picker renders.
// Setting the field to anything else leaves the picker's internal state
// unchanged, so this layout is a hard external-interface requirement.
const displayDateLayout = "January 2, 2006"

// Date converts a date value into the picker's display form, e.g.
// "October 30, 2025". Accepts time.Time or string. Returns ok=false when no
// heuristic parsed the value; the raw string is then returned unmodified.
func Date(v any) (string, bool) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(displayDateLayout), true
	case *time.Time:
		if d == nil {
			return "", false
		}
		return d.Format(displayDateLayout), true
	case string:
		return dateFromString(d)
	default:
		return dateFromString(fmt.Sprint(v))
	}
}

func dateFromString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return s, false
	}

	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(displayDateLayout), true
		}
	}

	// Permissive fallback for anything the fixed layouts missed, with
	// day-first disambiguation to match the fixed layouts above.
	if d, err := dateparse.ParseAny(s, dateparse.PreferMonthFirst(false)); err == nil {
		return d.Format(displayDateLayout), true
	}

	return s, false
}

// Clock converts a time-of-day value into zero-padded 24-hour "HH:MM" form.
// Accepts time.Time or string. Returns ok=false with the raw value when the
// input is not a recognizable clock time.
func Clock(v any) (string, bool) {
	switch c := v.(type) {
	case time.Time:
		return c.Format("15:04"), true
	case string:
		return clockFromString(c)
	default:
		return clockFromString(fmt.Sprint(v))
	}
}

var clockLayouts = []string{
	"15:04",
	"15:4",
	"3:04 PM",
	"3:04PM",
	"15:04:05",
	"3:04:05 PM",
}

func clockFromString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return s, false
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, s); err == nil {
			return c.Format("15:04"), true
		}
	}
	return s, false
}
