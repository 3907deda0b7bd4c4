package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	ds "github.com/open-builders/guild-bot/internal/domain/stats"
)

func TestParseResettable(t *testing.T) {
	p, err := parseResettable("weekly")
	require.NoError(t, err)
	require.Equal(t, ds.PeriodWeekly, p)

	p, err = parseResettable("month")
	require.NoError(t, err)
	require.Equal(t, ds.PeriodMonthly, p)

	_, err = parseResettable("all")
	require.Error(t, err)
	_, err = parseResettable("hourly")
	require.Error(t, err)
}

func TestNewApp_Commands(t *testing.T) {
	var s srv
	app := s.newApp()

	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"run", "prune", "reset-counters"}, names)
	require.NotNil(t, app.Action)
}
