package config

import (
	"os"

	"nfl-pickem-live/database"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"
	"nfl-pickem-live/services"
)

// ToDatabaseConfig converts Config to database.Config
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Username: c.Database.Username,
		Password: c.Database.Password,
		Database: c.Database.Database,
	}
}

// ToLoggingConfig converts Config to logging.Config
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:       c.Logging.Level,
		Output:      os.Stdout,
		Prefix:      c.Logging.Prefix,
		EnableColor: c.Logging.EnableColor,
		JSON:        c.Logging.JSON,
	}
}

func (c *Config) ToScoringPolicy() models.ScoringPolicy {
	return models.ScoringPolicy{
		PerSelection:    c.Scoring.PerSelection,
		LockCorrect:     c.Scoring.LockCorrect,
		LockIncorrect:   c.Scoring.LockIncorrect,
		TouchdownScorer: c.Scoring.TouchdownScorer,
		PropCorrect:     c.Scoring.PropCorrect,
	}
}

func (c *Config) ToHubConfig() services.HubConfig {
	return services.HubConfig{
		ReplaySize: c.Live.ReplaySize,
		Heartbeat:  c.Live.Heartbeat,
	}
}
