package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nfl-pickem-live/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchedule(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadScheduleFile(t *testing.T) {
	path := writeSchedule(t, `[
		{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "KC", "home": "BUF"},
		{"id": 2, "season": 2025, "week": 2, "date": "2025-09-14T20:00:00Z", "away": "DAL", "home": "PHI",
		 "state": "completed", "awayScore": 10, "homeScore": 24}
	]`)

	games, err := LoadScheduleFile(path)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, models.GameStateScheduled, games[0].State)
	assert.Equal(t, "PHI", games[1].Winner())

	repo := NewMemoryGameRepository(games...)
	week, err := repo.FindByWeek(context.Background(), 2025, 2)
	require.NoError(t, err)
	assert.Len(t, week, 2)
}

func TestLoadScheduleFileRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"null entry", `[null]`},
		{"missing week", `[{"id": 1, "season": 2025, "date": "2025-09-14T17:00:00Z", "away": "KC", "home": "BUF"}]`},
		{"missing team", `[{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "KC"}]`},
		{"unknown team", `[{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "XYZ", "home": "BUF"}]`},
		{"lower case team", `[{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "kc", "home": "BUF"}]`},
		{"missing date", `[{"id": 1, "season": 2025, "week": 2, "away": "KC", "home": "BUF"}]`},
		{"duplicate", `[
			{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "KC", "home": "BUF"},
			{"id": 1, "season": 2025, "week": 2, "date": "2025-09-14T17:00:00Z", "away": "KC", "home": "BUF"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScheduleFile(writeSchedule(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadScheduleFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
