package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CSRF_SECRET", "csrf-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10, cfg.SalesPageSize)
	assert.Equal(t, time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_TIMEZONE=Asia/Tokyo\nSALES_PAGE_SIZE=25\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("APP_TIMEZONE")
		_ = os.Unsetenv("SALES_PAGE_SIZE")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.SalesPageSize)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("timezone", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")
		_, err := LoadConfig(missing)
		assert.ErrorContains(t, err, "APP_TIMEZONE")
	})
	t.Run("page size", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SALES_PAGE_SIZE", "0")
		_, err := LoadConfig(missing)
		assert.Error(t, err)
	})
	t.Run("csrf secret", func(t *testing.T) {
		t.Setenv("CSRF_SECRET", "")
		_, err := LoadConfig(missing)
		assert.Error(t, err)
	})
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, (&Config{LogLevel: in}).SlogLevel(), in)
	}
	var nilCfg *Config
	assert.Equal(t, slog.LevelInfo, nilCfg.SlogLevel())
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Info("hello")
	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, `"app":"myfruitshop"`)
	assert.Contains(t, line, `"env":"production"`)

	buf.Reset()
	newLogger(&buf, &Config{LogFormat: "pretty", AppEnv: "development"}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
