package dataset

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDateLayouts are tried in order when parsing a date string
var DefaultDateLayouts = []string{
	"2006-01-02",          // ISO format
	time.RFC3339,          // ISO with time and zone
	"2006-01-02 15:04:05", // With time
	"2006/01/02",          // Alternative ISO
	"01/02/2006",          // US format
	"02-Jan-2006",         // Exchange export format
	"Jan 2, 2006",         // Long US format
	"01-02-06",            // Spreadsheet short date
}

// ParseDate parses s with the first matching layout and normalises the
// result to a UTC calendar day. With no layouts, DefaultDateLayouts is used.
func ParseDate(s string, layouts ...string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			return Normalize(d), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}
