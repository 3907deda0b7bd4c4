// Package duration converts between human duration text ("1d12h", "30m",
// "1,000s") and milliseconds.
package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
)

const (
	// NoTime is rendered for zero or negative durations.
	NoTime = "no time"
	// LessThanSecond is rendered for positive durations under one second.
	LessThanSecond = "less than a second"
)

const (
	msSecond = int64(1000)
	msMinute = 60 * msSecond
	msHour   = 60 * msMinute
	msDay    = 24 * msHour
	msWeek   = 7 * msDay

	// MaxMillis is the longest duration that still fits a time.Duration.
	MaxMillis = math.MaxInt64 / int64(time.Millisecond)
)

var (
	componentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)([a-z]+)`)

	unitMillis = map[string]int64{
		"ms": 1, "msec": 1, "msecs": 1, "millisecond": 1, "milliseconds": 1,
		"s": msSecond, "sec": msSecond, "secs": msSecond, "second": msSecond, "seconds": msSecond,
		"m": msMinute, "min": msMinute, "mins": msMinute, "minute": msMinute, "minutes": msMinute,
		"h": msHour, "hr": msHour, "hrs": msHour, "hour": msHour, "hours": msHour,
		"d": msDay, "day": msDay, "days": msDay,
		"w": msWeek, "wk": msWeek, "wks": msWeek, "week": msWeek, "weeks": msWeek,
	}
)

// Parse converts compound duration text into milliseconds. ok is false for
// empty, unparseable, zero or negative input. Every number must carry a unit.
func Parse(text string) (ms int64, ok bool) {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0, false
	}

	matches := componentRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, false
	}

	var total float64
	pos := 0
	for _, m := range matches {
		// Any gap (a sign, stray punctuation, unknown text) rejects the input.
		if m[0] != pos {
			return 0, false
		}
		pos = m[1]

		value, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, false
		}
		unit, known := unitMillis[s[m[4]:m[5]]]
		if !known {
			return 0, false
		}
		total += value * float64(unit)
	}
	if pos != len(s) {
		return 0, false
	}

	if math.IsInf(total, 0) || math.IsNaN(total) || total > float64(MaxMillis) {
		return 0, false
	}
	ms = int64(math.Round(total))
	if ms <= 0 || ms > MaxMillis {
		return 0, false
	}
	return ms, true
}

// ParseDuration is Parse returning a time.Duration and a validation error.
func ParseDuration(text string) (time.Duration, error) {
	ms, ok := Parse(text)
	if !ok {
		return 0, apperrors.NewValidationError("duration", fmt.Sprintf("cannot parse %q, use forms like 30m, 2h or 1d12h", text))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Format renders ms as a descending list of non-zero units
// ("1 day, 2 hours, 5 seconds").
func Format(ms int64) string {
	if ms <= 0 {
		return NoTime
	}
	if ms < msSecond {
		return LessThanSecond
	}

	units := []struct {
		size int64
		name string
	}{
		{msDay, "day"},
		{msHour, "hour"},
		{msMinute, "minute"},
		{msSecond, "second"},
	}

	parts := make([]string, 0, len(units))
	rest := ms
	for _, u := range units {
		n := rest / u.size
		rest %= u.size
		if n == 0 {
			continue
		}
		name := u.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	return strings.Join(parts, ", ")
}

// FormatDuration is Format for a time.Duration.
func FormatDuration(d time.Duration) string {
	return Format(d.Milliseconds())
}
