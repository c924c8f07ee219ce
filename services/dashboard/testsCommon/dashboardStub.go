package testsCommon

import (
	"context"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
)

// DashboardStub -
type DashboardStub struct {
	ProcessMetricHandler  func(ctx context.Context, key string) (*common.MetricResult, error)
	HealthHandler         func(ctx context.Context) *common.HealthResponse
	TestConnectionHandler func(ctx context.Context) error
	SettingsHandler       func() config.Settings
	ApplySettingsHandler  func(ctx context.Context, settings config.Settings, clearCache bool) error
	ClearCacheHandler     func(ctx context.Context) error
}

// ProcessMetric -
func (stub *DashboardStub) ProcessMetric(ctx context.Context, key string) (*common.MetricResult, error) {
	if stub.ProcessMetricHandler != nil {
		return stub.ProcessMetricHandler(ctx, key)
	}

	return &common.MetricResult{
		Payload: []byte("{}"),
		Outcome: common.OutcomeFresh,
	}, nil
}

// Health -
func (stub *DashboardStub) Health(ctx context.Context) *common.HealthResponse {
	if stub.HealthHandler != nil {
		return stub.HealthHandler(ctx)
	}

	return &common.HealthResponse{
		OK:     true,
		Checks: map[string]string{},
	}
}

// TestConnection -
func (stub *DashboardStub) TestConnection(ctx context.Context) error {
	if stub.TestConnectionHandler != nil {
		return stub.TestConnectionHandler(ctx)
	}

	return nil
}

// Settings -
func (stub *DashboardStub) Settings() config.Settings {
	if stub.SettingsHandler != nil {
		return stub.SettingsHandler()
	}

	return config.Settings{}
}

// ApplySettings -
func (stub *DashboardStub) ApplySettings(ctx context.Context, settings config.Settings, clearCache bool) error {
	if stub.ApplySettingsHandler != nil {
		return stub.ApplySettingsHandler(ctx, settings, clearCache)
	}

	return nil
}

// ClearCache -
func (stub *DashboardStub) ClearCache(ctx context.Context) error {
	if stub.ClearCacheHandler != nil {
		return stub.ClearCacheHandler(ctx)
	}

	return nil
}

// IsInterfaceNil -
func (stub *DashboardStub) IsInterfaceNil() bool {
	return stub == nil
}
