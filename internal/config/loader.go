package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config captures environment driven configuration values for the fleet service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string
	// Location is the display time zone used to cut calendar windows.
	Location        *time.Location
	LayoutCacheSize int
	// SweepSchedule is a cron expression for the completion sweep. Empty disables it.
	SweepSchedule   string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

// Load reads an optional .env file from the working directory and then parses
// the process environment. Variables already set in the environment win over
// the file.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile behaves like Load with an explicit env file path. A missing file is
// not an error.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return parse(os.LookupEnv)
}

func parse(lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "fleet.db",
		Location:        time.UTC,
		LayoutCacheSize: 256,
		SweepSchedule:   "@every 5m",
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        slog.LevelInfo,
	}

	var invalid []string
	lookup := func(key string) (string, bool) {
		raw, _ := lookupEnv(key)
		value := strings.TrimSpace(raw)
		return value, value != ""
	}

	if value, ok := lookup("FLEET_HTTP_PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "FLEET_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value, ok := lookup("FLEET_SQLITE_DSN"); ok {
		cfg.SQLiteDSN = value
	}

	if value, ok := lookup("FLEET_TIMEZONE"); ok {
		loc, err := time.LoadLocation(value)
		if err != nil {
			invalid = append(invalid, "FLEET_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value, ok := lookup("FLEET_LAYOUT_CACHE_SIZE"); ok {
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			invalid = append(invalid, "FLEET_LAYOUT_CACHE_SIZE")
		} else {
			cfg.LayoutCacheSize = size
		}
	}

	// Set but empty disables the sweep.
	if raw, set := lookupEnv("FLEET_SWEEP_SCHEDULE"); set {
		cfg.SweepSchedule = strings.TrimSpace(raw)
	}
	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			invalid = append(invalid, "FLEET_SWEEP_SCHEDULE")
		}
	}

	if value, ok := lookup("FLEET_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(value)
	}

	if value, ok := lookup("FLEET_SHUTDOWN_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "FLEET_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if value, ok := lookup("FLEET_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "FLEET_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
