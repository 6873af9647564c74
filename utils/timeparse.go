package utils

import (
	"fmt"
	"strings"
	"time"
)

// clientLayouts are the timestamp shapes sent by the frontend. Layouts
// without a zone are read in the business timezone.
var clientLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseClientTime parses a timestamp from a request body
func ParseClientTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range clientLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// DayRange returns [start, end) of the calendar day named by a YYYY-MM-DD string
func DayRange(day string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(day), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q", day)
	}
	return start, start.AddDate(0, 0, 1), nil
}
