package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/epi-age-comparison/internal/epidemic/sources"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CKAN_PACKAGE_URL", "REGIONS", "COMPARISON_START", "COMPARISON_END", "HTTP_TIMEOUT",
		"REFRESH_INTERVAL", "STORE_DRIVER", "SQLITE_PATH", "STORE_MAX_HISTORY", "PORT", "LOG_MODE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, sources.DefaultPackageURL, cfg.PackageURL)
	assert.Equal(t, []string{"CHFL"}, cfg.Regions)
	assert.Equal(t, time.Date(2021, 3, 23, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2022, 4, 5, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 6*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 50, cfg.StoreMaxHistory)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGIONS", " CH, CHFL ,,FL")
	t.Setenv("COMPARISON_START", "2021-01-01")
	t.Setenv("COMPARISON_END", "2021-12-31")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("STORE_MAX_HISTORY", "3")
	t.Setenv("REFRESH_INTERVAL", "30m")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"CH", "CHFL", "FL"}, cfg.Regions)
	assert.Equal(t, 2021, cfg.EndDate.Year())
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.StoreMaxHistory)
	assert.Equal(t, 30*time.Minute, cfg.RefreshInterval)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad date":       {"COMPARISON_START": "23.03.2021"},
		"reversed range": {"COMPARISON_START": "2022-01-01", "COMPARISON_END": "2021-01-01"},
		"bad duration":   {"HTTP_TIMEOUT": "soon"},
		"bad driver":     {"STORE_DRIVER": "postgres"},
		"no regions":     {"REGIONS": " , "},

		"refresh interval too short": {"REFRESH_INTERVAL": "30s"},
		"negative refresh interval":  {"REFRESH_INTERVAL": "-1h"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, _, err := Load()
			assert.Error(t, err)
		})
	}
}
