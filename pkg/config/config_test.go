package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "/api", cfg.Proxy.PathPrefix)
	assert.Equal(t, 2*time.Second, cfg.Login.PollInterval)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, "homefeed_recommend", cfg.Feed.DefaultCategory)
	assert.Equal(t, 500*time.Millisecond, cfg.Download.Stagger)
	assert.Equal(t, 2, cfg.Download.Retries)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XHSTOOLBOX_BACKEND_URL", "https://backend.example.com")
	t.Setenv("XHSTOOLBOX_BACKEND_ORIGIN", "https://origin.example.com")
	t.Setenv("XHSTOOLBOX_POLL_INTERVAL", "3s")
	t.Setenv("XHSTOOLBOX_PAGE_SIZE", "30")
	t.Setenv("XHSTOOLBOX_CONCURRENT_DOWNLOADS", "4")
	t.Setenv("XHSTOOLBOX_SESSION_STORE", "redis")
	t.Setenv("XHSTOOLBOX_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://backend.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "https://origin.example.com", cfg.Proxy.BackendOrigin)
	assert.Equal(t, 3*time.Second, cfg.Login.PollInterval)
	assert.Equal(t, 30, cfg.Feed.PageSize)
	assert.Equal(t, 4, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("XHSTOOLBOX_PAGE_SIZE", "twenty")
	t.Setenv("XHSTOOLBOX_POLL_INTERVAL", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XHSTOOLBOX_PAGE_SIZE")
	assert.Contains(t, err.Error(), "XHSTOOLBOX_POLL_INTERVAL")
	assert.Equal(t, 20, cfg.Feed.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "backend origin without scheme",
			modify:  func(c *Config) { c.Proxy.BackendOrigin = "backend.example.com" },
			wantErr: "proxy backend origin",
		},
		{
			name:    "path prefix without slash",
			modify:  func(c *Config) { c.Proxy.PathPrefix = "api" },
			wantErr: "path prefix",
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Login.PollInterval = 0 },
			wantErr: "poll interval",
		},
		{
			name:    "page size too large",
			modify:  func(c *Config) { c.Feed.PageSize = 500 },
			wantErr: "page size",
		},
		{
			name:    "too many concurrent downloads",
			modify:  func(c *Config) { c.Download.ConcurrentDownloads = 11 },
			wantErr: "should not exceed 10",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Download.Retries = -1 },
			wantErr: "retries must be between",
		},
		{
			name:    "unknown session store",
			modify:  func(c *Config) { c.Session.Store = "cookie" },
			wantErr: "unknown session store",
		},
		{
			name: "redis store without address",
			modify: func(c *Config) {
				c.Session.Store = StoreRedis
				c.Session.RedisAddr = ""
			},
			wantErr: "redis address",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Feed.PageSize = 0
	cfg.Login.PollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, strings.Split(err.Error(), "\n"), 2)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"backend":    "https://api.example.com",
		"listen":     ":9090",
		"output":     "/tmp/out",
		"concurrent": 5,
		"num":        0,
		"log-level":  "",
	})

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, ":9090", cfg.Proxy.Listen)
	assert.Equal(t, "/tmp/out", cfg.Output.BaseDirectory)
	assert.Equal(t, 5, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://saved.example.com"
	cfg.Login.PollInterval = 5 * time.Second
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "https://saved.example.com", loaded.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, loaded.Login.PollInterval)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend:\n  base_url: https://file.example.com\nfeed:\n  page_size: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("XHSTOOLBOX_PAGE_SIZE", "15")

	cfg, err := Load(path, map[string]interface{}{"backend": "https://flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 15, cfg.Feed.PageSize)
}

func TestMasked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.RedisPassword = "hunter2"

	masked := cfg.Masked()
	assert.Equal(t, "********", masked.Session.RedisPassword)
	assert.Equal(t, "hunter2", cfg.Session.RedisPassword)
}
