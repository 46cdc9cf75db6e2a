package shared

import "time"

// DateKeyLayout is the canonical calendar-date format used for daily keys.
const DateKeyLayout = "2006-01-02"

// DateKey identifies a single calendar date (UTC) and is used as part of the
// daily-uniqueness keys for sessions and tenant usage rows.
type DateKey string

// NewDateKey derives the date key for the given instant, normalized to UTC.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.UTC().Format(DateKeyLayout))
}

// Today returns the date key for the current UTC day.
func Today() DateKey {
	return NewDateKey(time.Now())
}

// IsValid reports whether the key parses as a calendar date.
func (d DateKey) IsValid() bool {
	_, err := time.Parse(DateKeyLayout, string(d))
	return err == nil
}

// Time returns the start of the keyed day in UTC.
func (d DateKey) Time() (time.Time, error) {
	return time.Parse(DateKeyLayout, string(d))
}

// String returns the string representation of the date key.
func (d DateKey) String() string {
	return string(d)
}
