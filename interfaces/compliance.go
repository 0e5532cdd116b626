package interfaces

import (
	"nfl-pickem-live/database"
	"nfl-pickem-live/services"
)

// Interface compliance checks - these fail to compile if an implementation drifts
var (
	_ PickService        = (*services.PickService)(nil)
	_ ScoringService     = (*services.ScoringService)(nil)
	_ PropService        = (*services.PropService)(nil)
	_ LeaderboardService = (*services.LeaderboardService)(nil)
	_ LiveStream         = (*services.Hub)(nil)
	_ TokenValidator     = (*services.TokenService)(nil)
	_ HealthChecker      = (*database.MongoDB)(nil)

	_ services.ChangeNotifier = (*services.Hub)(nil)
	_ services.ChangeNotifier = (*services.Relay)(nil)

	_ services.GameRepository            = (*database.MongoGameRepository)(nil)
	_ services.GameRepository            = (*database.MemoryGameRepository)(nil)
	_ services.PickRepository            = (*database.MongoPickRepository)(nil)
	_ services.PickRepository            = (*database.MemoryPickRepository)(nil)
	_ services.ScorerRegistry            = (*database.MongoUsedScorerRepository)(nil)
	_ services.ScorerRegistry            = (*database.MemoryScorerRegistry)(nil)
	_ services.WeeklyScoreRepository     = (*database.MongoWeeklyScoreRepository)(nil)
	_ services.WeeklyScoreRepository     = (*database.MemoryWeeklyScoreRepository)(nil)
	_ services.SeasonTotalRepository     = (*database.MongoSeasonTotalRepository)(nil)
	_ services.SeasonTotalRepository     = (*database.MemorySeasonTotalRepository)(nil)
	_ services.TouchdownResultRepository = (*database.MongoTouchdownResultRepository)(nil)
	_ services.TouchdownResultRepository = (*database.MemoryTouchdownResultRepository)(nil)
)
