package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// AppConfig holds the startup configuration for the statistics service. It is
// immutable after Load and passed into each component at construction.
type AppConfig struct {
	// StartDate is the calendar day historical processing starts from.
	StartDate time.Time

	// RawBaseDir is the root of the per-sensor raw file hierarchy.
	RawBaseDir string `validate:"required"`

	// RawPattern is a glob relative to RawBaseDir with {sensor} and {year}
	// placeholders.
	RawPattern string `validate:"required"`

	// OutputDir is where the per-sensor statistics logs are written.
	OutputDir string `validate:"required"`

	// AnchorHour is the hour-of-day every window boundary falls on.
	AnchorHour int `validate:"gte=0,lte=23"`

	// Timezone anchors the window boundaries.
	Timezone *time.Location

	// RunInterval controls how often the pipeline runs.
	RunInterval time.Duration

	// MaxWorkers bounds the per-sensor fan-out.
	MaxWorkers int `validate:"gte=1"`

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	startStr := getenvDefault("START_DATE", "2025-01-01")
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}
	cfg.StartDate = start

	cfg.RawBaseDir = getenvDefault("RAW_BASE_DIR", "/export/data2/tame-insitu/quantaq/cloud")
	cfg.RawPattern = getenvDefault("RAW_FILE_PATTERN", "{sensor}/*/{year}-*-MOD{sensor}final.csv")
	cfg.OutputDir = getenvDefault("OUTPUT_DIR", ".")

	cfg.AnchorHour = getenvInt("ANCHOR_HOUR", 6)

	tzName := getenvDefault("TIMEZONE", "UTC")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	intervalStr := getenvDefault("RUN_INTERVAL", "6h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_INTERVAL: %w", err)
	}
	cfg.RunInterval = interval

	cfg.MaxWorkers = getenvInt("MAX_WORKERS", 4)
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
