package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port          string
	Env           string
	SessionSecret string
	SessionTTL    time.Duration

	DB        DatabaseConfig
	Redis     RedisConfig
	Anthropic AnthropicConfig
	Workspace WorkspaceConfig
	Desktop   DesktopConfig
	Worker    WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AnthropicConfig contains credentials for the generative-text provider.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// WorkspaceConfig contains filesystem roots the workspace endpoints may touch
// and the base directories for skill/agent definition files.
type WorkspaceConfig struct {
	Roots     []string
	SkillsDir string
	AgentsDir string
}

// DesktopConfig maps desktop names to their noVNC upstream URLs.
type DesktopConfig struct {
	Upstreams map[string]string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	ActivityRetention     time.Duration
	ActivitySweepInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.SessionSecret = getEnv("SESSION_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Anthropic (document generation)
	cfg.Anthropic = AnthropicConfig{
		APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		Model:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		BaseURL:   getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		MaxTokens: getEnvInt("ANTHROPIC_MAX_TOKENS", 4096),
	}

	// Workspace roots and definition directories
	cfg.Workspace = WorkspaceConfig{
		Roots:     splitList(getEnv("WORKSPACE_ROOTS", "/workspace")),
		SkillsDir: getEnv("SKILLS_DIR", "/workspace/skills"),
		AgentsDir: getEnv("AGENTS_DIR", "/workspace/agents"),
	}

	// Desktop upstreams: "name=http://host:port,name2=http://host2:port"
	upstreams, err := parseUpstreams(getEnv("DESKTOP_UPSTREAMS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid DESKTOP_UPSTREAMS: %w", err)
	}
	cfg.Desktop = DesktopConfig{Upstreams: upstreams}

	// Session TTL
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.ActivityRetention, err = parseDurationEnv("ACTIVITY_RETENTION", "720h"); err != nil {
		return nil, fmt.Errorf("invalid ACTIVITY_RETENTION: %w", err)
	}
	if cfg.Worker.ActivitySweepInterval, err = parseDurationEnv("ACTIVITY_SWEEP_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid ACTIVITY_SWEEP_INTERVAL: %w", err)
	}

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate SESSION_SECRET
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET must be set for authentication")
	}

	if len(cfg.Workspace.Roots) == 0 {
		return nil, errors.New("WORKSPACE_ROOTS must list at least one directory")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// splitList splits a comma-separated env value, trimming blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseUpstreams parses "name=url" pairs separated by commas.
func parseUpstreams(raw string) (map[string]string, error) {
	upstreams := make(map[string]string)
	for _, part := range splitList(raw) {
		name, target, ok := strings.Cut(part, "=")
		if !ok || name == "" || target == "" {
			return nil, fmt.Errorf("malformed entry %q, expected name=url", part)
		}
		upstreams[name] = target
	}
	return upstreams, nil
}
