package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Supported cache backends
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// Limits enforced on the configuration values
const (
	MaxSiteIDs     = 10
	MinSiteID      = 1
	MaxSiteID      = 99999
	MinTTLSeconds  = 10
	MaxTTLSeconds  = 3600
	MinTokenLength = 32
)

// UpstreamConfig holds the Matomo connection settings
type UpstreamConfig struct {
	BaseURL                  string `toml:"BaseURL"`
	TokenAuth                string `toml:"TokenAuth"`
	SiteIDs                  []int  `toml:"SiteIDs"`
	TimeoutInSeconds         int    `toml:"TimeoutInSeconds"`
	MaxRetries               int    `toml:"MaxRetries"`
	RetryDelayInMilliseconds int    `toml:"RetryDelayInMilliseconds"`
	UserAgent                string `toml:"UserAgent"`
}

// CacheConfig holds the cache backend settings and the per metric TTLs
type CacheConfig struct {
	Backend              string `toml:"Backend"`
	Directory            string `toml:"Directory"`
	SQLitePath           string `toml:"SQLitePath"`
	RedisAddress         string `toml:"RedisAddress"`
	RedisPassword        string `toml:"RedisPassword"`
	RedisDB              int    `toml:"RedisDB"`
	RedisKeyPrefix       string `toml:"RedisKeyPrefix"`
	Active30TTLInSeconds int    `toml:"Active30TTLInSeconds"`
	HourlyTTLInSeconds   int    `toml:"HourlyTTLInSeconds"`
}

// AdminConfig holds the admin API settings
type AdminConfig struct {
	Username               string `toml:"Username"`
	SettingsFile           string `toml:"SettingsFile"`
	MaxLoginAttempts       int    `toml:"MaxLoginAttempts"`
	LoginCooldownInSeconds int    `toml:"LoginCooldownInSeconds"`
	TokenLifetimeInHours   int    `toml:"TokenLifetimeInHours"`
}

// Config maps to the config.toml file for the dashboard service
type Config struct {
	ListenAddress string         `toml:"ListenAddress"`
	StaticDir     string         `toml:"StaticDir"`
	Timezone      string         `toml:"Timezone"`
	Upstream      UpstreamConfig `toml:"Upstream"`
	Cache         CacheConfig    `toml:"Cache"`
	Admin         AdminConfig    `toml:"Admin"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks the structural correctness of the configuration. Missing connection settings or an empty site list
// are allowed here: they are reported per request as configuration errors
func (cfg Config) Validate() error {
	problems := make([]string, 0)

	if len(cfg.ListenAddress) == 0 {
		problems = append(problems, "listen address is required")
	}
	if _, err := cfg.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(cfg.Upstream.BaseURL) > 0 {
		problems = appendIfError(problems, checkBaseURL(cfg.Upstream.BaseURL))
	}
	problems = appendIfError(problems, checkSiteIDs(cfg.Upstream.SiteIDs))
	if cfg.Upstream.TimeoutInSeconds <= 0 {
		problems = append(problems, "upstream timeout should be positive")
	}
	if cfg.Upstream.MaxRetries < 0 {
		problems = append(problems, "upstream max retries should not be negative")
	}
	if cfg.Upstream.RetryDelayInMilliseconds < 0 {
		problems = append(problems, "upstream retry delay should not be negative")
	}
	problems = appendIfError(problems, checkTTL("active_30", cfg.Cache.Active30TTLInSeconds))
	problems = appendIfError(problems, checkTTL("hourly_today", cfg.Cache.HourlyTTLInSeconds))
	problems = append(problems, cfg.Cache.problems()...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

func (cc CacheConfig) problems() []string {
	switch cc.Backend {
	case CacheBackendFile:
		if len(cc.Directory) == 0 {
			return []string{"cache directory is required for the file backend"}
		}
	case CacheBackendSQLite:
		if len(cc.SQLitePath) == 0 {
			return []string{"sqlite path is required for the sqlite backend"}
		}
	case CacheBackendRedis:
		if len(cc.RedisAddress) == 0 {
			return []string{"redis address is required for the redis backend"}
		}
	default:
		return []string{fmt.Sprintf("unknown cache backend '%s'", cc.Backend)}
	}

	return nil
}

// Location returns the configured timezone, defaulting to UTC
func (cfg Config) Location() (*time.Location, error) {
	if len(cfg.Timezone) == 0 {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s'", cfg.Timezone)
	}

	return loc, nil
}

// HasConnectionSettings returns true if both the upstream base URL and the token are set
func (cfg Config) HasConnectionSettings() bool {
	return len(cfg.Upstream.BaseURL) > 0 && len(cfg.Upstream.TokenAuth) > 0
}

// Timeout returns the per call upstream timeout
func (uc UpstreamConfig) Timeout() time.Duration {
	return time.Duration(uc.TimeoutInSeconds) * time.Second
}

// RetryDelay returns the fixed delay between two upstream attempts
func (uc UpstreamConfig) RetryDelay() time.Duration {
	return time.Duration(uc.RetryDelayInMilliseconds) * time.Millisecond
}

// Active30TTL returns the validity window of the active_30 cache entry
func (cc CacheConfig) Active30TTL() time.Duration {
	return time.Duration(cc.Active30TTLInSeconds) * time.Second
}

// HourlyTTL returns the validity window of the hourly_today cache entry
func (cc CacheConfig) HourlyTTL() time.Duration {
	return time.Duration(cc.HourlyTTLInSeconds) * time.Second
}

// LoginCooldown returns the time a client is blocked after too many failed logins
func (ac AdminConfig) LoginCooldown() time.Duration {
	return time.Duration(ac.LoginCooldownInSeconds) * time.Second
}

// TokenLifetime returns the validity of an issued admin token
func (ac AdminConfig) TokenLifetime() time.Duration {
	return time.Duration(ac.TokenLifetimeInHours) * time.Hour
}

func checkBaseURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || len(parsed.Host) == 0 {
		return fmt.Errorf("malformed upstream URL '%s'", rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("upstream URL should start with http:// or https://")
	}

	return nil
}

func checkSiteIDs(siteIDs []int) error {
	if len(siteIDs) > MaxSiteIDs {
		return fmt.Errorf("at most %d site ids are allowed, got %d", MaxSiteIDs, len(siteIDs))
	}

	for _, id := range siteIDs {
		if id < MinSiteID || id > MaxSiteID {
			return fmt.Errorf("site id %d is out of the %d-%d range", id, MinSiteID, MaxSiteID)
		}
	}

	return nil
}

func checkTTL(name string, ttl int) error {
	if ttl < MinTTLSeconds || ttl > MaxTTLSeconds {
		return fmt.Errorf("%s TTL should be between %d and %d seconds, got %d", name, MinTTLSeconds, MaxTTLSeconds, ttl)
	}

	return nil
}

func appendIfError(problems []string, err error) []string {
	if err != nil {
		return append(problems, err.Error())
	}

	return problems
}
