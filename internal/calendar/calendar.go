package calendar

import (
	"strings"
	"time"
)

// DayFormat is the calendar-date key used everywhere downstream.
const DayFormat = "2006-01-02"

// Resolver maps raw UTC timestamps to trading-day keys. TZOffsetHours moves
// UTC to the account's local clock; DayStartHour lets a trading day begin at
// e.g. 08:00 local instead of midnight.
type Resolver struct {
	TZOffsetHours int
	DayStartHour  int // 0-23
}

// DayOf returns the trading-day key for a timestamp.
func (r Resolver) DayOf(ts time.Time) string {
	shifted := ts.UTC().
		Add(time.Duration(r.TZOffsetHours) * time.Hour).
		Add(-time.Duration(r.DayStartHour) * time.Hour)
	return shifted.Format(DayFormat)
}

// DayWindowUTC converts a local trading-day key into the half-open UTC
// range [start, end) it covers, matching the store queries. Used to bound
// fill fetches and day-open balance anchors.
func (r Resolver) DayWindowUTC(day string) (time.Time, time.Time, error) {
	local, err := time.Parse(DayFormat, day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := local.
		Add(time.Duration(r.DayStartHour) * time.Hour).
		Add(-time.Duration(r.TZOffsetHours) * time.Hour)
	return start, start.Add(24 * time.Hour), nil
}

// rawTimeLayouts are the timestamp shapes seen in tradesheet blobs.
var rawTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	DayFormat,
}

// ParseRaw parses a timestamp string from a snapshot blob. Returns false
// when no layout matches; callers treat that as "no anchor", never an error.
func ParseRaw(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range rawTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// DayOfRaw resolves a trading-day key from a raw timestamp string. When the
// string matches no known layout it falls back to truncating the leading
// date characters, so one malformed row cannot abort a whole batch.
func (r Resolver) DayOfRaw(raw string) string {
	if ts, ok := ParseRaw(raw); ok {
		return r.DayOf(ts)
	}
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(DayFormat) {
		return raw[:len(DayFormat)]
	}
	return raw
}

// NextDay advances a day key by one calendar day. Malformed keys are
// returned unchanged.
func NextDay(day string) string {
	ts, err := time.Parse(DayFormat, day)
	if err != nil {
		return day
	}
	return ts.AddDate(0, 0, 1).Format(DayFormat)
}

// DaysBetween returns every day key from start to end inclusive.
// Returns nil when the bounds do not parse or start is after end.
func DaysBetween(start, end string) []string {
	s, err := time.Parse(DayFormat, start)
	if err != nil {
		return nil
	}
	e, err := time.Parse(DayFormat, end)
	if err != nil {
		return nil
	}
	if s.After(e) {
		return nil
	}
	var days []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayFormat))
	}
	return days
}

// MonthStart returns the first day of the month containing the given UTC
// instant, as a day key. Used for month-to-date windows.
func MonthStart(now time.Time) string {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC).Format(DayFormat)
}
