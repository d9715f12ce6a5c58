package core

// convert.go turns spreadsheet text into dates, wall-clock times and room keys.
//
// These functions handle the messy reality of organizer-provided sheets:
//   - Multiple date formats (US, EU, ISO, "Jan 2, 2006")
//   - 12h and 24h clock formats, with or without seconds
//   - Excel formula prefixes (="value") and stray quotes
//   - Room names that differ only in case or spacing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// DateLayout is the canonical text form of a session date.
const DateLayout = "2006-01-02"

// ClockLayout is the canonical text form of a wall-clock time.
const ClockLayout = "15:04"

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"Mon, Jan 2, 2006", "Monday, January 2, 2006",
		"20060102",
	}
	clockLayouts = []string{
		"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM",
		"3 PM", "3PM", "15.04", "1504",
	}
)

// ParseDate parses a session date in any supported layout and returns it at
// UTC midnight. The second return value is false for empty or invalid input.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	// Spreadsheet exports sometimes append a midnight time to dates.
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return t, true
		}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t), true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return civilDate(t), true
		}
	}

	return time.Time{}, false
}

// civilDate strips the clock and location from t.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clock is a wall-clock time expressed in minutes since midnight.
type Clock int

// String formats the clock as "15:04".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseClock parses a wall-clock time. Seconds are truncated.
func ParseClock(s string) (Clock, bool) {
	s = strings.TrimSpace(CleanCell(s))
	if s == "" {
		return 0, false
	}
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, upper)
		if err != nil {
			continue
		}
		return Clock(t.Hour()*60 + t.Minute()), true
	}
	return 0, false
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// folder is not safe for concurrent use, so calls are serialized.
var (
	folderMu sync.Mutex
	folder   = cases.Fold()
)

// RoomKey returns the identity of a room name: Unicode case-folded with runs
// of whitespace collapsed. Two names match when their keys are equal.
func RoomKey(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	folderMu.Lock()
	defer folderMu.Unlock()
	return folder.String(collapsed)
}

// cellText coerces one untyped decoder value to text. kind selects the
// formatting of time.Time values.
func cellText(v any, kind cellKind) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return CleanCell(val)
	case []byte:
		return CleanCell(string(val))
	case time.Time:
		return formatTimeCell(val, kind)
	case fmt.Stringer:
		return CleanCell(val.String())
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloatCell(val, kind)
	case float32:
		return formatFloatCell(float64(val), kind)
	case bool:
		return strconv.FormatBool(val)
	default:
		return CleanCell(fmt.Sprint(val))
	}
}

type cellKind int

const (
	cellPlain cellKind = iota
	cellDate
	cellClock
)

func formatTimeCell(t time.Time, kind cellKind) string {
	switch kind {
	case cellDate:
		return t.Format(DateLayout)
	case cellClock:
		return t.Format(ClockLayout)
	default:
		return t.Format(time.RFC3339)
	}
}

// formatFloatCell renders numbers without exponent. Spreadsheet clock cells
// arrive as a fraction of a day, which is converted to "15:04".
func formatFloatCell(f float64, kind cellKind) string {
	if kind == cellClock && f >= 0 && f < 1 {
		minutes := int(math.Round(f * 24 * 60))
		return Clock(minutes % (24 * 60)).String()
	}
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
