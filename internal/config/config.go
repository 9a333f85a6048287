// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Config holds all environment driven settings.
type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiImageModel string

	LogLevel   string
	PreferIPv4 bool

	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	BatchInterval  time.Duration
	CacheTTL       time.Duration

	MaskGrowPx  int
	BrushRadius float64
	StageWidth  int
	StageHeight int
	LibraryDir  string
}

// Load reads .env files (if present) and then the process environment.
// A missing API key is not an error here; AI actions check it when used.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	cfg := Config{
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion: getEnv("GEMINI_API_VERSION", "v1beta"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		BatchInterval:    time.Duration(getEnvInt("BATCH_INTERVAL_MS", 1500)) * time.Millisecond,
		CacheTTL:         time.Duration(getEnvInt("CACHE_TTL_SECONDS", 600)) * time.Second,
		MaskGrowPx:       getEnvInt("MASK_GROW_PX", 0),
		BrushRadius:      getEnvFloat("BRUSH_RADIUS", 20),
		StageWidth:       getEnvInt("STAGE_WIDTH", 1024),
		StageHeight:      getEnvInt("STAGE_HEIGHT", 1024),
		LibraryDir:       getEnv("LIBRARY_DIR", defaultLibraryDir()),
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.BatchInterval < 0 {
		cfg.BatchInterval = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.MaskGrowPx < 0 {
		cfg.MaskGrowPx = 0
	}
	if cfg.BrushRadius < 1 {
		cfg.BrushRadius = 1
	}
	if cfg.StageWidth <= 0 {
		cfg.StageWidth = 1024
	}
	if cfg.StageHeight <= 0 {
		cfg.StageHeight = 1024
	}
	return cfg
}

// RequireAPIKey validates that AI calls can be made.
func (c Config) RequireAPIKey() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger returns the JSON logger used by the binaries.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.SlogLevel(),
	}))
}

func defaultLibraryDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "product-studio-library"
	}
	return filepath.Join(dir, "product-studio", "library")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
