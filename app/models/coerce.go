package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Cell coercion shared by the per-entity mapping functions. Reads are
// forgiving because staff edit the backing sheet by hand; writes always use
// one canonical form.

// toInt parses "3", "3.0" and "3.9" (truncated). Anything else is 0.
func toInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func toInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return int64(toInt(s))
}

func toFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// toBool is true only for a case-insensitive "true".
func toBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func toTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toTimeOrZero reads an empty or unreadable cell as the zero time, which
// fmtTime writes back as an empty cell.
func toTimeOrZero(s string) time.Time {
	t, _ := toTime(s)
	return t
}

func toTimePtr(s string) *time.Time {
	if t, ok := toTime(s); ok {
		return &t
	}
	return nil
}

func fmtInt(n int) string     { return strconv.Itoa(n) }
func fmtInt64(n int64) string { return strconv.FormatInt(n, 10) }
func fmtBool(b bool) string   { return strconv.FormatBool(b) }

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}

// RoundMoney rounds to whole cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
