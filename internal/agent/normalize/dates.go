package normalize

import (
	"strings"
	"time"
)

// CanonicalDateLayout is the output format for every normalized date.
const CanonicalDateLayout = "2006-01-02"

// dateLayouts lists the input formats we accept, most common first.
// US month-first ordering wins for ambiguous numeric dates.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01.02.2006",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan. 2, 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 Jan. 2006",
	"2 January 2006",
	"Jan 02, 2006",
	"02 Jan 2006",
}

// NormalizeDate parses a raw date string into canonical YYYY-MM-DD form.
// The bool is false when no known layout matches.
func NormalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// Two-digit years land in the right century via time.Parse
			// (69-99 -> 19xx, 00-68 -> 20xx), which matches scanned
			// document expectations.
			return t.Format(CanonicalDateLayout), true
		}
	}
	return "", false
}
