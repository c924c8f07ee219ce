package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigString = `
ListenAddress = "0.0.0.0:8080"
StaticDir = "./web"
Timezone = "Asia/Tokyo"

[Upstream]
    BaseURL = "https://matomo.example.com"
    SiteIDs = [1, 2]
    TimeoutInSeconds = 10
    MaxRetries = 2
    RetryDelayInMilliseconds = 500
    UserAgent = "MatomoRTDashboard/1.0"

[Cache]
    Backend = "file"
    Directory = "storage/cache"
    SQLitePath = "storage/cache.db"
    RedisAddress = "127.0.0.1:6379"
    RedisKeyPrefix = "matomo-dashboard:"
    Active30TTLInSeconds = 60
    HourlyTTLInSeconds = 300

[Admin]
    Username = "admin"
    SettingsFile = "storage/settings.json"
    MaxLoginAttempts = 5
    LoginCooldownInSeconds = 300
    TokenLifetimeInHours = 24
`

func createTestConfig() Config {
	return Config{
		ListenAddress: "0.0.0.0:8080",
		StaticDir:     "./web",
		Timezone:      "Asia/Tokyo",
		Upstream: UpstreamConfig{
			BaseURL:                  "https://matomo.example.com",
			SiteIDs:                  []int{1, 2},
			TimeoutInSeconds:         10,
			MaxRetries:               2,
			RetryDelayInMilliseconds: 500,
			UserAgent:                "MatomoRTDashboard/1.0",
		},
		Cache: CacheConfig{
			Backend:              "file",
			Directory:            "storage/cache",
			SQLitePath:           "storage/cache.db",
			RedisAddress:         "127.0.0.1:6379",
			RedisKeyPrefix:       "matomo-dashboard:",
			Active30TTLInSeconds: 60,
			HourlyTTLInSeconds:   300,
		},
		Admin: AdminConfig{
			Username:               "admin",
			SettingsFile:           "storage/settings.json",
			MaxLoginAttempts:       5,
			LoginCooldownInSeconds: 300,
			TokenLifetimeInHours:   24,
		},
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	expectedCfg := createTestConfig()

	cfg := Config{}

	err := toml.Unmarshal([]byte(testConfigString), &cfg)
	assert.Nil(t, err)
	assert.Equal(t, expectedCfg, cfg)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file should error", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("malformed file should error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("ListenAddress = "), 0644))

		cfg, err := LoadConfig(path)
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to decode config file")
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(testConfigString), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, createTestConfig(), *cfg)
	})
	t.Run("sample config should be valid", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfig("../config.toml")
		require.NoError(t, err)
		assert.Nil(t, cfg.Validate())
		assert.Equal(t, CacheBackendFile, cfg.Cache.Backend)
		assert.Equal(t, "500ms", cfg.Upstream.RetryDelay().String())
		assert.False(t, cfg.HasConnectionSettings())
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid config should work", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, createTestConfig().Validate())
	})
	t.Run("empty site list and missing connection settings are allowed", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Upstream.BaseURL = ""
		cfg.Upstream.SiteIDs = nil

		assert.Nil(t, cfg.Validate())
		assert.False(t, cfg.HasConnectionSettings())
	})
	t.Run("all problems should be reported", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.ListenAddress = ""
		cfg.Timezone = "Mars/Olympus_Mons"
		cfg.Upstream.BaseURL = "ftp://matomo.example.com"
		cfg.Upstream.SiteIDs = []int{1, 0}
		cfg.Upstream.TimeoutInSeconds = 0
		cfg.Upstream.MaxRetries = -1
		cfg.Cache.Active30TTLInSeconds = 5
		cfg.Cache.HourlyTTLInSeconds = 3601
		cfg.Cache.Backend = "memcached"

		err := cfg.Validate()
		require.Error(t, err)

		validationErr, ok := err.(*ValidationError)
		require.True(t, ok)
		assert.Len(t, validationErr.Problems, 9)
		assert.Contains(t, err.Error(), "unknown cache backend 'memcached'")
		assert.Contains(t, err.Error(), "site id 0 is out of the 1-99999 range")
	})
	t.Run("too many site ids should error", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Upstream.SiteIDs = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

		assert.ErrorContains(t, cfg.Validate(), "at most 10 site ids are allowed")
	})
	t.Run("backend specific settings are required", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig()
		cfg.Cache.Backend = CacheBackendRedis
		cfg.Cache.RedisAddress = ""
		assert.ErrorContains(t, cfg.Validate(), "redis address is required")

		cfg.Cache.Backend = CacheBackendSQLite
		cfg.Cache.SQLitePath = ""
		assert.ErrorContains(t, cfg.Validate(), "sqlite path is required")

		cfg.Cache.Backend = CacheBackendFile
		cfg.Cache.Directory = ""
		assert.ErrorContains(t, cfg.Validate(), "cache directory is required")
	})
}

func TestConfig_Durations(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig()
	assert.Equal(t, "10s", cfg.Upstream.Timeout().String())
	assert.Equal(t, "500ms", cfg.Upstream.RetryDelay().String())
	assert.Equal(t, "1m0s", cfg.Cache.Active30TTL().String())
	assert.Equal(t, "5m0s", cfg.Cache.HourlyTTL().String())
	assert.Equal(t, "5m0s", cfg.Admin.LoginCooldown().String())
	assert.Equal(t, "24h0m0s", cfg.Admin.TokenLifetime().String())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	cfg.Timezone = ""
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
