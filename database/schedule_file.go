package database

import (
	"encoding/json"
	"os"

	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
)

// LoadScheduleFile reads a JSON array of games, as exported from the games collection.
// Used to seed the in-memory store and by the import command.
func LoadScheduleFile(path string) ([]*models.Game, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schedule %s", path)
	}

	var games []*models.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, errors.Wrapf(err, "parse schedule %s", path)
	}

	seen := make(map[int]bool, len(games))
	for i, g := range games {
		switch {
		case g == nil:
			return nil, errors.Newf("schedule entry %d is null", i)
		case g.ID <= 0 || g.Season <= 0 || g.Week <= 0:
			return nil, errors.Newf("schedule entry %d: id, season and week are required", i)
		case g.Home == "" || g.Away == "":
			return nil, errors.Newf("game %d: home and away are required", g.ID)
		case !knownTeam(g.Home) || !knownTeam(g.Away):
			return nil, errors.Newf("game %d: unknown team in %s@%s", g.ID, g.Away, g.Home)
		case g.Date.IsZero():
			return nil, errors.Newf("game %d: kickoff date is required", g.ID)
		case seen[g.ID]:
			return nil, errors.Newf("game %d appears twice", g.ID)
		}
		if g.State == "" {
			g.State = models.GameStateScheduled
		}
		seen[g.ID] = true
	}
	return games, nil
}

// knownTeam requires the feed's exact upper-case abbreviation, since picks compare teams verbatim
func knownTeam(abbr string) bool {
	team, ok := models.LookupTeam(abbr)
	return ok && team.Abbr == abbr
}
