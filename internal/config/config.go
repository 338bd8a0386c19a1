package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	App       AppConfig
	Anthropic AnthropicConfig
	Duel      DuelConfig
	Judge     JudgeConfig
	Realtime  RealtimeConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret   string
	Environment string
}

// AnthropicConfig holds LLM generation settings
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// DuelConfig holds matchmaking and lifecycle settings
type DuelConfig struct {
	EloKFactor               int
	ProblemTTLDays           int
	ProblemMaxReuse          int
	WaitingTimeoutRandomSec  int
	WaitingTimeoutAISec      int
	WaitingTimeoutPrivateSec int
	MaxDurationSec           int
	SweepIntervalSec         int
}

// JudgeConfig holds code-execution limits
type JudgeConfig struct {
	TimeLimitSec     int
	MemoryLimitMB    int
	RateLimitPerMin  int
	SandboxImage     string
	SandboxImageNode string
}

// RealtimeConfig holds streaming-session settings
type RealtimeConfig struct {
	CodeUpdateDebounceMs int
	WSTimeoutSec         int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "codeduel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			Environment: getEnv("APP_ENV", "development"),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		},
		Duel: DuelConfig{
			EloKFactor:               getEnvInt("ELO_K_FACTOR", 32),
			ProblemTTLDays:           getEnvInt("PROBLEM_TTL_DAYS", 30),
			ProblemMaxReuse:          getEnvInt("PROBLEM_MAX_REUSE", 3),
			WaitingTimeoutRandomSec:  getEnvInt("WAITING_TIMEOUT_RANDOM_SEC", 1800),
			WaitingTimeoutAISec:      getEnvInt("WAITING_TIMEOUT_AI_SEC", 600),
			WaitingTimeoutPrivateSec: getEnvInt("WAITING_TIMEOUT_PRIVATE_SEC", 3600),
			MaxDurationSec:           getEnvInt("DUEL_MAX_DURATION_SEC", 1800),
			SweepIntervalSec:         getEnvInt("SWEEP_INTERVAL_SEC", 60),
		},
		Judge: JudgeConfig{
			TimeLimitSec:     getEnvInt("SUBMISSION_TIME_LIMIT_SEC", 5),
			MemoryLimitMB:    getEnvInt("SUBMISSION_MEMORY_MB", 256),
			RateLimitPerMin:  getEnvInt("JUDGE_RATE_LIMIT_PER_MIN", 30),
			SandboxImage:     getEnv("SANDBOX_IMAGE", "python:3.11-alpine"),
			SandboxImageNode: getEnv("SANDBOX_IMAGE_NODE", "node:20-alpine"),
		},
		Realtime: RealtimeConfig{
			CodeUpdateDebounceMs: getEnvInt("CODE_UPDATE_DEBOUNCE_MS", 300),
			WSTimeoutSec:         getEnvInt("WS_TIMEOUT_SEC", 60),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a fallback default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
