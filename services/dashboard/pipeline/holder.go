package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	healthProbeKey = "health_probe"
	checkOK        = "ok"
	checkSkipped   = "skipped"
	checkConfig    = "config"
	checkCache     = "cache"
	checkUpstream  = "upstream"
)

var log = logger.GetOrCreate("pipeline")

// ArgsPipelineHolder is the DTO used to create a pipeline holder
type ArgsPipelineHolder struct {
	BaseConfig   config.Config
	Settings     config.Settings
	SettingsFile string
	Store        CacheStore
	Metrics      MetricsRecorder
}

// pipelineHolder owns the active pipeline and replaces it whenever new settings are applied. Requests already
// in flight keep using the pipeline they started with
type pipelineHolder struct {
	baseConfig   config.Config
	settingsFile string
	store        CacheStore
	metrics      MetricsRecorder
	nowFunc      func() time.Time

	mutApply sync.Mutex
	mut      sync.RWMutex
	current  *pipeline
}

// NewPipelineHolder creates the holder and builds the initial pipeline from the base configuration overridden by
// the saved settings
func NewPipelineHolder(args ArgsPipelineHolder) (*pipelineHolder, error) {
	if check.IfNil(args.Store) {
		return nil, errNilCacheStore
	}
	if check.IfNil(args.Metrics) {
		return nil, errNilMetricsRecorder
	}

	holder := &pipelineHolder{
		baseConfig:   args.BaseConfig,
		settingsFile: args.SettingsFile,
		store:        args.Store,
		metrics:      args.Metrics,
		nowFunc:      time.Now,
	}

	cfg := args.BaseConfig.WithSettings(args.Settings)
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	holder.current, err = newPipeline(cfg, args.Store, args.Metrics)
	if err != nil {
		return nil, err
	}

	return holder, nil
}

func (holder *pipelineHolder) active() *pipeline {
	holder.mut.RLock()
	defer holder.mut.RUnlock()

	return holder.current
}

// ProcessMetric serves the metric with the provided key
func (holder *pipelineHolder) ProcessMetric(ctx context.Context, key string) (*common.MetricResult, error) {
	eng, found := holder.active().engines[key]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, key)
	}

	return eng.Process(ctx)
}

// Config returns the configuration of the active pipeline
func (holder *pipelineHolder) Config() config.Config {
	return holder.active().cfg
}

// Settings returns the admin editable part of the active configuration
func (holder *pipelineHolder) Settings() config.Settings {
	return holder.active().cfg.Settings()
}

// ApplySettings validates and persists the new settings, then swaps in a pipeline built from them
func (holder *pipelineHolder) ApplySettings(ctx context.Context, settings config.Settings, clearCache bool) error {
	holder.mutApply.Lock()
	defer holder.mutApply.Unlock()

	err := config.ValidateSettings(settings)
	if err != nil {
		return err
	}

	cfg := holder.baseConfig.WithSettings(settings)
	err = cfg.Validate()
	if err != nil {
		return err
	}

	newP, err := newPipeline(cfg, holder.store, holder.metrics)
	if err != nil {
		return err
	}

	if len(holder.settingsFile) > 0 {
		err = config.SaveSettings(holder.settingsFile, settings)
		if err != nil {
			return err
		}
	}

	holder.mut.Lock()
	holder.current = newP
	holder.mut.Unlock()

	log.Info("settings applied", "url", cfg.Upstream.BaseURL, "sites", cfg.Upstream.SiteIDs, "timezone", cfg.Timezone)

	if clearCache {
		return holder.ClearCache(ctx)
	}

	return nil
}

// ClearCache removes all the cached metric values
func (holder *pipelineHolder) ClearCache(ctx context.Context) error {
	err := holder.store.Clear(ctx)
	if err != nil {
		return fmt.Errorf("%w while clearing the cache", err)
	}

	log.Info("cache cleared")
	return nil
}

// TestConnection issues a light live counters call for the first configured site
func (holder *pipelineHolder) TestConnection(ctx context.Context) error {
	p := holder.active()
	if len(p.cfg.Upstream.SiteIDs) == 0 {
		return common.NewConfigError(common.ErrEmptySiteList)
	}

	_, err := p.client.Call(ctx, common.MethodLiveCounters, map[string]string{
		common.ParamIDSite:      strconv.Itoa(p.cfg.Upstream.SiteIDs[0]),
		common.ParamLastMinutes: common.HealthProbeWindowInMinutes,
	})

	return err
}

// Health checks the configuration, the cache and the upstream reachability
func (holder *pipelineHolder) Health(ctx context.Context) *common.HealthResponse {
	p := holder.active()
	response := &common.HealthResponse{
		OK:     true,
		Checks: make(map[string]string),
	}
	setCheck := func(name string, err error) {
		if err != nil {
			response.OK = false
			response.Checks[name] = "error: " + err.Error()
			return
		}

		response.Checks[name] = checkOK
	}

	configComplete := p.cfg.HasConnectionSettings() && len(p.cfg.Upstream.SiteIDs) > 0
	if configComplete {
		setCheck(checkConfig, nil)
	} else {
		setCheck(checkConfig, errors.New("incomplete settings"))
	}

	setCheck(checkCache, holder.probeCache(ctx))

	if configComplete {
		setCheck(checkUpstream, holder.TestConnection(ctx))
	} else {
		response.Checks[checkUpstream] = checkSkipped
	}

	location, err := p.cfg.Location()
	if err != nil {
		location = time.UTC
	}
	response.Timestamp = holder.nowFunc().In(location).Format(time.RFC3339)

	return response
}

func (holder *pipelineHolder) probeCache(ctx context.Context) error {
	probe := []byte(fmt.Sprintf(`{"probe":%d}`, holder.nowFunc().UnixNano()))
	if !holder.store.Write(ctx, healthProbeKey, probe) {
		return errors.New("write failed")
	}

	data, found := holder.store.ReadAny(ctx, healthProbeKey)
	if !found || string(data) != string(probe) {
		return errors.New("read back failed")
	}

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (holder *pipelineHolder) IsInterfaceNil() bool {
	return holder == nil
}
