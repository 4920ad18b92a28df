package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the conversation engine service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	GeneratorMode    string
	GeminiAPIKey     string
	GeminiModel      string
	GeneratorHTTPURL string
	GenerateTimeout  time.Duration

	CatalogPath string

	DatabaseURL string

	CatalogFloor    float64
	SkillMatchFloor float64

	StageWindowSize int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "pendo"),
		AllowAnyOrigin:   false,
		GeneratorMode:    envOrDefault("GENERATOR_MODE", "auto"),
		GeminiAPIKey:     stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeneratorHTTPURL: stringsTrimSpace("GENERATOR_HTTP_URL"),
		GenerateTimeout:  30 * time.Second,
		CatalogPath:      stringsTrimSpace("CATALOG_PATH"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:  15 * time.Second,
		StageWindowSize:  256,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerateTimeout, err = durationFromEnv("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.CatalogFloor, err = floatFromEnv("SCORING_CATALOG_FLOOR", cfg.CatalogFloor)
	if err != nil {
		return Config{}, err
	}
	cfg.SkillMatchFloor, err = floatFromEnv("SCORING_SKILL_MATCH_FLOOR", cfg.SkillMatchFloor)
	if err != nil {
		return Config{}, err
	}
	cfg.StageWindowSize, err = intFromEnv("APP_STAGE_WINDOW_SIZE", cfg.StageWindowSize)
	if err != nil {
		return Config{}, err
	}

	if cfg.GenerateTimeout < time.Second {
		return Config{}, fmt.Errorf("GENERATE_TIMEOUT must be at least 1s")
	}
	if cfg.CatalogFloor < 0 || cfg.CatalogFloor > 100 {
		return Config{}, fmt.Errorf("SCORING_CATALOG_FLOOR must be within [0,100]")
	}
	if cfg.SkillMatchFloor < 0 || cfg.SkillMatchFloor > 100 {
		return Config{}, fmt.Errorf("SCORING_SKILL_MATCH_FLOOR must be within [0,100]")
	}
	if cfg.StageWindowSize <= 0 {
		return Config{}, fmt.Errorf("APP_STAGE_WINDOW_SIZE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
