package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const functionVersionPrefix = "FUNCTION_V_"

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Document/realtime path prefixes
	AniCanvasPath string
	SharePath     string

	// Chat webhook
	SlackAPIBaseURL string
	SlackBotToken   string

	// Gallery view
	PageSize int

	// Function version table, assembled once from FUNCTION_V_* variables and
	// passed by reference into the dispatcher.
	FunctionVersions map[string]string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	// .env is optional; real deployments inject variables directly
	_ = godotenv.Load()

	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "ani-canvas"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AniCanvasPath: getEnv("ANI_CANVAS_PATH", "ani-canvas"),
		SharePath:     getEnv("SHARE_PATH", "share"),

		SlackAPIBaseURL: getEnv("SLACK_API_BASE_URL", "https://slack.com/api"),
		SlackBotToken:   getEnv("SLACK_BOT_TOKEN", ""),

		PageSize: getEnvInt("GALLERY_PAGE_SIZE", 9),

		FunctionVersions: loadFunctionVersions(os.Environ()),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("GALLERY_PAGE_SIZE must be at least 1")
	}
	return nil
}

// loadFunctionVersions collects FUNCTION_V_<name>=<tag> entries from the
// environment into the version table consulted by the function dispatcher.
func loadFunctionVersions(environ []string) map[string]string {
	versions := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, functionVersionPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, functionVersionPrefix)
		if name == "" || value == "" {
			continue
		}
		versions[name] = value
	}
	return versions
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
