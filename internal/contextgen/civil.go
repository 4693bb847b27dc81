package contextgen

import (
	"fmt"
	"time"
)

// DaysFromCivil implements Howard Hinnant's days-from-civil algorithm: the
// day count since 1970-01-01 for a proleptic-Gregorian (y, m, d), per spec
// §4.S9's "date arithmetic uses Hinnant's days_from_civil algorithm; no
// external time library" — used here instead of reaching for a calendar
// library to bucket relative timestamps.
func DaysFromCivil(y, m, d int) int64 {
	if m <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era = y - 399
	}
	era /= 400
	yoe := y - era*400 // [0, 399]
	var mp int
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1                  // [0, 365]
	doe := yoe*365 + yoe/4 - yoe/100 + doy        // [0, 146096]
	return int64(era)*146097 + int64(doe) - 719468 //nolint:mnd // 719468 is the fixed 0000-03-01 epoch offset of Hinnant's algorithm
}

// dayNumber reduces t to the Hinnant day count of its UTC calendar date.
func dayNumber(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return DaysFromCivil(y, int(m), d)
}

// RelativeTime formats t relative to now per spec §4.S9: "<n>m ago" under an
// hour, "<n>h ago" under a day, "<n>d ago" under a week, else "Mon DD" within
// the current year or "Mon DD, YYYY" otherwise.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		m := int(d / time.Minute)
		return fmt.Sprintf("%dm ago", m)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}

	dayDiff := dayNumber(now) - dayNumber(t)
	if dayDiff < 7 {
		return fmt.Sprintf("%dd ago", dayDiff)
	}
	if now.UTC().Year() == t.UTC().Year() {
		return t.UTC().Format("Jan 2")
	}
	return t.UTC().Format("Jan 2, 2006")
}
