package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const settingsFilePermissions = 0600

// Settings is the admin editable overlay persisted in the settings.json file. Values set here take precedence over the
// ones provided by the .env and the config.toml files
type Settings struct {
	MatomoURL            string `json:"matomo_url,omitempty"`
	TokenAuth            string `json:"token_auth,omitempty"`
	SiteIDs              []int  `json:"site_ids,omitempty"`
	Timezone             string `json:"timezone,omitempty"`
	Active30TTLInSeconds int    `json:"cache_ttl_active_30,omitempty"`
	HourlyTTLInSeconds   int    `json:"cache_ttl_hourly,omitempty"`
}

// ValidationError aggregates all the problems found while validating a configuration
type ValidationError struct {
	Problems []string
}

// Error returns the string representation of the error
func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Settings extracts the admin editable part of the configuration
func (cfg Config) Settings() Settings {
	siteIDs := make([]int, len(cfg.Upstream.SiteIDs))
	copy(siteIDs, cfg.Upstream.SiteIDs)

	return Settings{
		MatomoURL:            cfg.Upstream.BaseURL,
		TokenAuth:            cfg.Upstream.TokenAuth,
		SiteIDs:              siteIDs,
		Timezone:             cfg.Timezone,
		Active30TTLInSeconds: cfg.Cache.Active30TTLInSeconds,
		HourlyTTLInSeconds:   cfg.Cache.HourlyTTLInSeconds,
	}
}

// WithSettings returns a copy of the configuration overridden by the non-empty settings values. A non-nil, empty site
// list is an override as well
func (cfg Config) WithSettings(s Settings) Config {
	merged := cfg
	if len(s.MatomoURL) > 0 {
		merged.Upstream.BaseURL = s.MatomoURL
	}
	if len(s.TokenAuth) > 0 {
		merged.Upstream.TokenAuth = s.TokenAuth
	}
	if s.SiteIDs != nil {
		merged.Upstream.SiteIDs = make([]int, len(s.SiteIDs))
		copy(merged.Upstream.SiteIDs, s.SiteIDs)
	} else {
		merged.Upstream.SiteIDs = make([]int, len(cfg.Upstream.SiteIDs))
		copy(merged.Upstream.SiteIDs, cfg.Upstream.SiteIDs)
	}
	if len(s.Timezone) > 0 {
		merged.Timezone = s.Timezone
	}
	if s.Active30TTLInSeconds > 0 {
		merged.Cache.Active30TTLInSeconds = s.Active30TTLInSeconds
	}
	if s.HourlyTTLInSeconds > 0 {
		merged.Cache.HourlyTTLInSeconds = s.HourlyTTLInSeconds
	}

	return merged
}

// ValidateSettings applies the strict checks required when an administrator saves new settings
func ValidateSettings(s Settings) error {
	problems := make([]string, 0)

	if len(s.MatomoURL) == 0 {
		problems = append(problems, "matomo URL is required")
	} else {
		problems = appendIfError(problems, checkBaseURL(s.MatomoURL))
	}

	if len(s.TokenAuth) == 0 {
		problems = append(problems, "token is required")
	} else if len(s.TokenAuth) < MinTokenLength {
		problems = append(problems, fmt.Sprintf("token should have at least %d characters", MinTokenLength))
	}

	if len(s.SiteIDs) == 0 {
		problems = append(problems, "at least one site id is required")
	} else {
		problems = appendIfError(problems, checkSiteIDs(s.SiteIDs))
	}

	if len(s.Timezone) > 0 {
		_, err := Config{Timezone: s.Timezone}.Location()
		problems = appendIfError(problems, err)
	}
	if s.Active30TTLInSeconds != 0 {
		problems = appendIfError(problems, checkTTL("active_30", s.Active30TTLInSeconds))
	}
	if s.HourlyTTLInSeconds != 0 {
		problems = appendIfError(problems, checkTTL("hourly_today", s.HourlyTTLInSeconds))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// LoadSettings reads the settings file. A missing file yields empty settings and no error
func LoadSettings(path string) (Settings, error) {
	if len(path) == 0 {
		return Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}

	var s Settings
	err = json.Unmarshal(data, &s)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings file '%s': %w", path, err)
	}

	return s, nil
}

// SaveSettings atomically replaces the settings file content
func SaveSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close settings file: %w", closeErr)
	}

	err = os.Chmod(tmpName, settingsFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to set settings file permissions: %w", err)
	}

	return os.Rename(tmpName, path)
}
