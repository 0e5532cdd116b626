package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"nfl-pickem-live/logging"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Auth      AuthConfig      `json:"auth"`
	App       AppConfig       `json:"app"`
	Scoring   ScoringConfig   `json:"scoring"`
	Live      LiveConfig      `json:"live"`
	Messaging MessagingConfig `json:"messaging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	UseTLS          bool          `json:"use_tls"`
	BehindProxy     bool          `json:"behind_proxy"`
	CertFile        string        `json:"cert_file"`
	KeyFile         string        `json:"key_file"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration. Store "memory" skips MongoDB entirely and
// seeds the schedule from ScheduleFile.
type DatabaseConfig struct {
	Store        string        `json:"store"`
	ScheduleFile string        `json:"schedule_file"`
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	Username     string        `json:"username"`
	Password     string        `json:"-"`
	Database     string        `json:"database"`
	Timeout      time.Duration `json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Prefix      string `json:"prefix"`
	EnableColor bool   `json:"enable_color"`
	JSON        bool   `json:"json"`
}

type AuthConfig struct {
	JWTSecret    string        `json:"-"`
	TokenExpiry  time.Duration `json:"token_expiry"`
	AdminKeyHash string        `json:"-"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	CurrentSeason    int    `json:"current_season"`
	Environment      string `json:"environment"`
	IsDevelopment    bool   `json:"is_development"`
	DiagnosticErrors bool   `json:"diagnostic_errors"`
}

// ScoringConfig holds the point weights. LockIncorrect is the size of the penalty.
type ScoringConfig struct {
	PerSelection    int `json:"per_selection"`
	LockCorrect     int `json:"lock_correct"`
	LockIncorrect   int `json:"lock_incorrect"`
	TouchdownScorer int `json:"touchdown_scorer"`
	PropCorrect     int `json:"prop_correct"`
}

// LiveConfig tunes the reveal ticker and the stream hub
type LiveConfig struct {
	Tick           time.Duration `json:"tick"`
	Heartbeat      time.Duration `json:"heartbeat"`
	ReplaySize     int           `json:"replay_size"`
	AllowedOrigins []string      `json:"allowed_origins"`
	WatchGames     bool          `json:"watch_games"`
}

// MessagingConfig enables the cross-instance relay when NATSURL is set
type MessagingConfig struct {
	NATSURL string `json:"nats_url"`
	Subject string `json:"subject"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Warnf("Could not load .env file: %v", err)
	}
	return FromEnv()
}

// FromEnv builds and validates configuration from the process environment alone
func FromEnv() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	isDevelopment := strings.EqualFold(environment, "development")

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			UseTLS:          getBoolEnv("USE_TLS", false),
			BehindProxy:     getBoolEnv("BEHIND_PROXY", false),
			CertFile:        getEnv("TLS_CERT_FILE", "server.crt"),
			KeyFile:         getEnv("TLS_KEY_FILE", "server.key"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Store:        strings.ToLower(getEnv("STORE", "mongo")),
			ScheduleFile: getEnv("SCHEDULE_FILE", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "27017"),
			Username:     getEnv("DB_USERNAME", ""),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "nfl_pickem"),
			Timeout:      getDurationEnv("DB_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Prefix:      getEnv("LOG_PREFIX", "pickem"),
			EnableColor: getBoolEnv("LOG_COLOR", true),
			JSON:        getBoolEnv("LOG_JSON", !isDevelopment),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", defaultJWTSecret),
			TokenExpiry:  getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),
			AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),
		},
		App: AppConfig{
			CurrentSeason:    getIntEnv("CURRENT_SEASON", 2025),
			Environment:      environment,
			IsDevelopment:    isDevelopment,
			DiagnosticErrors: getBoolEnv("DIAGNOSTIC_ERRORS", false),
		},
		Scoring: ScoringConfig{
			PerSelection:    getIntEnv("SCORE_PER_SELECTION", 1),
			LockCorrect:     getIntEnv("SCORE_LOCK_CORRECT", 2),
			LockIncorrect:   getIntEnv("SCORE_LOCK_INCORRECT", 1),
			TouchdownScorer: getIntEnv("SCORE_TOUCHDOWN_SCORER", 3),
			PropCorrect:     getIntEnv("SCORE_PROP_CORRECT", 1),
		},
		Live: LiveConfig{
			Tick:           getDurationEnv("LIVE_TICK", time.Minute),
			Heartbeat:      getDurationEnv("LIVE_HEARTBEAT", 30*time.Second),
			ReplaySize:     getIntEnv("LIVE_REPLAY_SIZE", 512),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			WatchGames:     getBoolEnv("WATCH_GAMES", true),
		},
		Messaging: MessagingConfig{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "pickem.changes"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate validates the configuration for required fields and sensible values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	if c.Server.UseTLS && !c.Server.BehindProxy {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return errors.New("TLS certificate and key files are required when USE_TLS=true")
		}
		if _, err := os.Stat(c.Server.CertFile); os.IsNotExist(err) {
			return errors.Newf("TLS certificate file not found: %s", c.Server.CertFile)
		}
		if _, err := os.Stat(c.Server.KeyFile); os.IsNotExist(err) {
			return errors.Newf("TLS key file not found: %s", c.Server.KeyFile)
		}
	}

	switch c.Database.Store {
	case "mongo":
		if c.Database.Host == "" || c.Database.Port == "" {
			return errors.New("database host and port are required")
		}
		if c.Database.Database == "" {
			return errors.New("database name is required")
		}
	case "memory":
		if !c.App.IsDevelopment {
			return errors.New("the memory store is only allowed in development")
		}
	default:
		return errors.Newf("unknown store %q, want mongo or memory", c.Database.Store)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if c.Auth.JWTSecret == defaultJWTSecret && !c.App.IsDevelopment {
		return errors.New("JWT secret must be changed in production")
	}
	if c.Auth.TokenExpiry <= 0 {
		return errors.New("token expiry must be positive")
	}

	if c.App.CurrentSeason < 2020 || c.App.CurrentSeason > 2100 {
		return errors.Newf("current season must be between 2020 and 2100, got: %d", c.App.CurrentSeason)
	}

	s := c.Scoring
	if s.PerSelection < 0 || s.LockCorrect < 0 || s.LockIncorrect < 0 || s.TouchdownScorer < 0 || s.PropCorrect < 0 {
		return errors.New("scoring weights must not be negative")
	}

	if c.Live.Tick <= 0 || c.Live.Heartbeat <= 0 {
		return errors.New("reveal tick and stream heartbeat must be positive")
	}
	if c.Live.ReplaySize < 1 {
		return errors.Newf("stream replay size must be at least 1, got: %d", c.Live.ReplaySize)
	}

	if c.Messaging.NATSURL != "" && c.Messaging.Subject == "" {
		return errors.New("NATS subject is required when NATS_URL is set")
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) UsesMemoryStore() bool {
	return c.Database.Store == "memory"
}

func (c *Config) RelayEnabled() bool {
	return c.Messaging.NATSURL != ""
}

// LogConfiguration logs the current configuration (without sensitive data)
func (c *Config) LogConfiguration() {
	logging.Info("=== Application Configuration ===")
	logging.Infof("Server: %s (TLS: %t, Behind Proxy: %t, Environment: %s)",
		c.GetServerAddress(), c.Server.UseTLS, c.Server.BehindProxy, c.App.Environment)
	if c.UsesMemoryStore() {
		logging.Infof("Store: in-memory (schedule: %q)", c.Database.ScheduleFile)
	} else {
		logging.Infof("Store: mongodb %s:%s/%s (Auth: %t)",
			c.Database.Host, c.Database.Port, c.Database.Database, c.Database.Password != "")
	}
	logging.Infof("Logging: Level=%s, Prefix=%s, JSON=%t", c.Logging.Level, c.Logging.Prefix, c.Logging.JSON)
	logging.Infof("Auth: TokenExpiry=%s, AdminKey=%t", c.Auth.TokenExpiry, c.Auth.AdminKeyHash != "")
	logging.Infof("App: Season=%d, DiagnosticErrors=%t", c.App.CurrentSeason, c.App.DiagnosticErrors)
	logging.Infof("Scoring: %+v", c.Scoring)
	logging.Infof("Live: Tick=%s, Heartbeat=%s, Replay=%d, Origins=%v, WatchGames=%t",
		c.Live.Tick, c.Live.Heartbeat, c.Live.ReplaySize, c.Live.AllowedOrigins, c.Live.WatchGames)
	logging.Infof("Relay: Enabled=%t, Subject=%s", c.RelayEnabled(), c.Messaging.Subject)
	logging.Info("================================")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
