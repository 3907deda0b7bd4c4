package duration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/open-builders/guild-bot/internal/common/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"30m", 30 * msMinute},
		{"1h", msHour},
		{"1d12h", msDay + 12*msHour},
		{"1d 12h 30m", msDay + 12*msHour + 30*msMinute},
		{"2 hours", 2 * msHour},
		{"1,000s", 1000 * msSecond},
		{"1.5h", 90 * msMinute},
		{"1w", msWeek},
		{"500ms", 500},
		{"10M", 10 * msMinute},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Failures(t *testing.T) {
	for _, in := range []string{"", "   ", "0m", "-5m", "garbage", "5", "5x", "1h-", "h1", "0.0001ms", "300000d", "100000000d", "20000000w"} {
		t.Run(in, func(t *testing.T) {
			_, ok := Parse(in)
			assert.False(t, ok)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("soon")
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	d, err = ParseDuration("100000d")
	require.NoError(t, err)
	require.Equal(t, 100000*24*time.Hour, d)

	_, err = ParseDuration("300000d")
	require.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, NoTime},
		{-10, NoTime},
		{999, LessThanSecond},
		{msSecond, "1 second"},
		{msDay + 2*msHour + 5*msSecond, "1 day, 2 hours, 5 seconds"},
		{3 * msMinute, "3 minutes"},
		{2*msDay + msMinute + 1500, "2 days, 1 minute, 1 second"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%d)", tt.in)
	}
}

func TestFormat_DescendingNonZeroUnits(t *testing.T) {
	order := map[string]int{"day": 0, "hour": 1, "minute": 2, "second": 3}

	for _, ms := range []int64{1000, 61_000, 3_600_000, 90_061_000, 86_400_000, 1_234_567_890} {
		out := Format(ms)
		last := -1
		for _, part := range strings.Split(out, ", ") {
			fields := strings.Fields(part)
			require.Len(t, fields, 2, out)
			require.NotEqual(t, "0", fields[0], out)

			idx, ok := order[strings.TrimSuffix(fields[1], "s")]
			require.True(t, ok, out)
			require.Greater(t, idx, last, out)
			last = idx
		}
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	ms, ok := Parse("1d12h30m")
	require.True(t, ok)
	require.Equal(t, "1 day, 12 hours, 30 minutes", Format(ms))
}
