package engagement

import "time"

// dayLayout is the calendar-day key format.
const dayLayout = "2006-01-02"

// Clock returns the current time in the caller's local zone.
type Clock func() time.Time

// SystemClock returns a Clock reading wall time in loc.
// A nil loc means time.Local.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

// DayKey extracts the YYYY-MM-DD prefix of an ISO-8601 timestamp.
// The timestamp's own offset is kept: no zone conversion is performed.
func DayKey(ts string) (string, bool) {
	if len(ts) < len(dayLayout) {
		return "", false
	}
	day := ts[:len(dayLayout)]
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// LocalDay returns the calendar day of t in t's own location.
func LocalDay(t time.Time) string {
	return t.Format(dayLayout)
}

// PrevDay returns the calendar day before day. Returns "" for a malformed day.
func PrevDay(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dayLayout)
}

// Timestamp formats t as an ISO-8601 string keeping t's offset.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
