package pipeline

import (
	"fmt"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/aggregator"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/engine"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/upstream"
)

// pipeline is the immutable set of components built from one configuration value
type pipeline struct {
	cfg     config.Config
	client  UpstreamClient
	engines map[string]MetricEngine
}

func newPipeline(cfg config.Config, store CacheStore, metrics MetricsRecorder) (*pipeline, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client, err := upstream.NewMatomoClient(upstream.ArgsMatomoClient{
		BaseURL:    cfg.Upstream.BaseURL,
		TokenAuth:  cfg.Upstream.TokenAuth,
		UserAgent:  cfg.Upstream.UserAgent,
		Timeout:    cfg.Upstream.Timeout(),
		MaxRetries: cfg.Upstream.MaxRetries,
		RetryDelay: cfg.Upstream.RetryDelay(),
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w while creating the upstream client", err)
	}

	active30, err := aggregator.NewActive30Aggregator(aggregator.ArgsAggregator{
		Client:   client,
		Metrics:  metrics,
		TTL:      cfg.Cache.Active30TTL(),
		Location: location,
	})
	if err != nil {
		return nil, fmt.Errorf("%w while creating the %s aggregator", err, common.KeyActive30)
	}

	hourly, err := aggregator.NewHourlyAggregator(aggregator.ArgsAggregator{
		Client:   client,
		Metrics:  metrics,
		TTL:      cfg.Cache.HourlyTTL(),
		Location: location,
	})
	if err != nil {
		return nil, fmt.Errorf("%w while creating the %s aggregator", err, common.KeyHourlyToday)
	}

	p := &pipeline{
		cfg:     cfg,
		client:  client,
		engines: make(map[string]MetricEngine),
	}

	err = p.addEngine(common.KeyActive30, cfg.Cache.Active30TTL(), active30, store, metrics)
	if err != nil {
		return nil, err
	}
	err = p.addEngine(common.KeyHourlyToday, cfg.Cache.HourlyTTL(), hourly, store, metrics)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *pipeline) addEngine(
	key string,
	ttl time.Duration,
	aggr engine.Aggregator,
	store CacheStore,
	metrics MetricsRecorder,
) error {
	eng, err := engine.NewMetricEngine(engine.ArgsMetricEngine{
		Key:        key,
		TTL:        ttl,
		SiteIDs:    p.cfg.Upstream.SiteIDs,
		Store:      store,
		Aggregator: aggr,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("%w while creating the %s engine", err, key)
	}

	p.engines[key] = eng
	return nil
}
