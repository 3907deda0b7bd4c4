package stats

import "fmt"

// Period selects a message counter granularity.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod maps user input onto a Period; empty input means PeriodAll.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodAll, "total", "lifetime":
		return PeriodAll, nil
	case PeriodDaily, "day":
		return PeriodDaily, nil
	case PeriodWeekly, "week":
		return PeriodWeekly, nil
	case PeriodMonthly, "month":
		return PeriodMonthly, nil
	}
	return "", fmt.Errorf("period must be all, daily, weekly or monthly, but got %s", s)
}

// Resettable reports whether the period's counter is zeroed on rollover.
func (p Period) Resettable() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}
