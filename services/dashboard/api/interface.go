package api

import (
	"context"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
)

// Dashboard defines the operations exposed through the HTTP API
type Dashboard interface {
	// ProcessMetric returns the cached or freshly aggregated payload of the metric with the provided key
	ProcessMetric(ctx context.Context, key string) (*common.MetricResult, error)

	// Health checks the configuration, the cache and the upstream reachability
	Health(ctx context.Context) *common.HealthResponse

	// TestConnection probes the upstream API with the active settings
	TestConnection(ctx context.Context) error

	// Settings returns the admin editable part of the active configuration
	Settings() config.Settings

	// ApplySettings validates, persists and activates new settings
	ApplySettings(ctx context.Context, settings config.Settings, clearCache bool) error

	// ClearCache removes all the cached metric values
	ClearCache(ctx context.Context) error

	IsInterfaceNil() bool
}
