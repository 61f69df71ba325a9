package query

import (
	"strconv"
	"strings"
	"time"

	"timely/internal/apperr"
)

// ParseTime resolves the flexible time spellings accepted on the command
// line: "now", "today", "yesterday", relative offsets like "7d"/"2h"/"30m",
// RFC3339 timestamps, and bare YYYY-MM-DD dates (midnight local time).
func ParseTime(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))

	switch s {
	case "now":
		return now, nil
	case "today":
		y, m, d := now.Local().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local).UTC(), nil
	case "yesterday":
		y, m, d := now.Local().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local).UTC(), nil
	}

	if len(s) > 1 {
		if n, err := strconv.ParseInt(s[:len(s)-1], 10, 64); err == nil {
			switch s[len(s)-1] {
			case 'd':
				return now.AddDate(0, 0, -int(n)), nil
			case 'h':
				return now.Add(-time.Duration(n) * time.Hour), nil
			case 'm':
				return now.Add(-time.Duration(n) * time.Minute), nil
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, apperr.New(apperr.CodeInvalidTimeRange,
		"cannot parse %q, use: now, today, yesterday, Nd, Nh, Nm, or YYYY-MM-DD", input)
}
