// Package expiry turns raw expiry cells into calendar dates and license
// statuses. Cells come from spreadsheets, so a value may be a numeric
// date serial, a date string, or free text with a date buried inside it
// ("ELP LEVEL 4 25/12/2024").
package expiry

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Status is the derived state of a single license. It is computed from
// the reference date at read time and never persisted.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring-soon"
	StatusExpired      Status = "expired"
	StatusUndated      Status = "undated"
)

// SoonThresholdDays is the window before the expiry date during which a
// license counts as expiring-soon.
const SoonThresholdDays = 30

const (
	// serialEpochOffset is the day count between the spreadsheet epoch
	// (1899-12-30) and the Unix epoch.
	serialEpochOffset = 25569
	msPerDay          = 86400 * 1000
	// maxSerial is 9999-12-31 in serial encoding. Larger values cannot
	// be dates.
	maxSerial = 2958465
)

var embeddedDate = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)

var textLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// Normalize converts a raw cell value into a pure UTC calendar date.
// Rules apply in order, first success wins: numeric date serial,
// whole-string parse, embedded D/M/YYYY pattern. The bool result is
// false when the value carries no recognizable date; that is a normal
// outcome for cells like "LEVEL 4", not an error.
func Normalize(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		return fromString(v)
	}
	return time.Time{}, false
}

// Serial re-encodes a calendar date as a spreadsheet day serial.
func Serial(date time.Time) float64 {
	d := truncate(date.UTC())
	return float64(d.UnixMilli())/msPerDay + serialEpochOffset
}

// fromSerial treats the value as a day count since the spreadsheet
// epoch. Small integers collide with non-date cells, hence the > 1
// guard.
func fromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial <= 1 || serial > maxSerial {
		return time.Time{}, false
	}
	ms := math.Round((serial - serialEpochOffset) * msPerDay)
	return truncate(time.UnixMilli(int64(ms)).UTC()), true
}

func fromString(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return truncate(t.UTC()), true
		}
	}

	m := embeddedDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year <= 1900 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	// No per-month day-count check: day 31 in a 30-day month rolls
	// forward. The data was captured under that laxity and tightening
	// it would reclassify existing rows.
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// Classify assigns a status using the ceiling day difference. This is
// the convention for dashboard statistics and cell coloring.
func Classify(date, today time.Time) Status {
	return classify(math.Ceil(dayDiff(date, today)))
}

// ClassifyReport assigns a status using the floor day difference.
// Report generation has always rounded this direction; the two
// conventions are kept under separate names so report output stays
// byte-stable. On pure calendar dates they agree.
func ClassifyReport(date, today time.Time) Status {
	return classify(math.Floor(dayDiff(date, today)))
}

func dayDiff(date, today time.Time) float64 {
	return truncate(date.UTC()).Sub(truncate(today.UTC())).Hours() / 24
}

func classify(diffDays float64) Status {
	switch {
	case diffDays < 1:
		return StatusExpired
	case diffDays <= SoonThresholdDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// IsPureDateValue reports whether a raw cell value is purely date-like:
// numeric, or a string with no letters. Cells mixing text and dates are
// classified for reports but skipped when coloring the grid.
func IsPureDateValue(value any) bool {
	switch v := value.(type) {
	case float64, int, int64:
		return true
	case string:
		for _, r := range v {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				return false
			}
		}
		return true
	}
	return false
}

// FormatDate renders a calendar date the way the grid displays it.
func FormatDate(date time.Time) string {
	return date.UTC().Format("2006/01/02")
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
