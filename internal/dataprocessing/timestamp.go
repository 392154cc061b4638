package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timestampLayouts are tried in order for textual invoice timestamps.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02",
	"1/2/2006",
}

// ParseTimestamp converts a raw cell into an invoice timestamp. It accepts
// time values, Excel serial numbers (as numbers or numeric text) and the
// textual layouts above. Null, empty and unrecognized cells fail.
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, !x.IsZero()
	case float64:
		return fromExcelSerial(x)
	case int64:
		return fromExcelSerial(float64(x))
	case int:
		return fromExcelSerial(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromExcelSerial(f)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func fromExcelSerial(serial float64) (time.Time, bool) {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	ts, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	// Excel serials carry float noise; round to the nearest second.
	return ts.Round(time.Second), true
}
