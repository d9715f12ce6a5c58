package core

import "time"

// FormatDateRange renders an event's bounds for display:
//
//	Jan 10, 2025
//	Jan 10 - 12, 2025
//	Jan 10 - Feb 2, 2025
//	Dec 30, 2024 - Jan 2, 2025
//
// A zero start yields "".
func FormatDateRange(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	if end.IsZero() || end.Before(start) {
		end = start
	}

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		return start.Format("Jan 2, 2006")
	case sy == ey && sm == em:
		return start.Format("Jan 2") + " - " + end.Format("2, 2006")
	case sy == ey:
		return start.Format("Jan 2") + " - " + end.Format("Jan 2, 2006")
	default:
		return start.Format("Jan 2, 2006") + " - " + end.Format("Jan 2, 2006")
	}
}
