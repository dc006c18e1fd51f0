package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/epidemic/sources"
	"github.com/i474232898/epi-age-comparison/internal/scheduler"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	// PackageURL is the CKAN package_show URL listing the three resources.
	PackageURL string

	// Regions compared by the scheduler.
	Regions []string

	// Default comparison window.
	StartDate time.Time
	EndDate   time.Time

	HTTPTimeout time.Duration

	// RefreshInterval controls how often configured comparisons are recomputed.
	RefreshInterval time.Duration

	StoreDriver     string
	SQLitePath      string
	StoreMaxHistory int // max comparisons per region (0 = unlimited)

	Port    string
	LogMode string
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first if present; the returned
// flag reports whether it was found.
func Load() (*AppConfig, bool, error) {
	dotenv := godotenv.Load() == nil
	cfg := &AppConfig{}

	cfg.PackageURL = getenvDefault("CKAN_PACKAGE_URL", sources.DefaultPackageURL)
	cfg.Regions = splitList(getenvDefault("REGIONS", "CHFL"))
	if len(cfg.Regions) == 0 {
		return nil, dotenv, fmt.Errorf("REGIONS must name at least one region")
	}

	var err error
	if cfg.StartDate, err = getenvDate("COMPARISON_START", "2021-03-23"); err != nil {
		return nil, dotenv, err
	}
	if cfg.EndDate, err = getenvDate("COMPARISON_END", "2022-04-05"); err != nil {
		return nil, dotenv, err
	}
	if cfg.EndDate.Before(cfg.StartDate) {
		return nil, dotenv, fmt.Errorf("COMPARISON_END must not be before COMPARISON_START")
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, dotenv, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "6h"); err != nil {
		return nil, dotenv, err
	}
	if cfg.RefreshInterval < scheduler.MinInterval {
		return nil, dotenv, fmt.Errorf("REFRESH_INTERVAL %s is below the minimum of %s",
			cfg.RefreshInterval, scheduler.MinInterval)
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreMemory))
	if cfg.StoreDriver != StoreMemory && cfg.StoreDriver != StoreSQLite {
		return nil, dotenv, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "comparisons.db")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 50)

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogMode = getenvDefault("LOG_MODE", "dev")

	return cfg, dotenv, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvDate(key, def string) (time.Time, error) {
	d, err := time.Parse(epidemic.DateLayout, getenvDefault(key, def))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
