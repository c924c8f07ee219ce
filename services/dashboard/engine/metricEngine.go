package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("engine")

// ArgsMetricEngine is the DTO used to create a metric engine
type ArgsMetricEngine struct {
	Key        string
	TTL        time.Duration
	SiteIDs    []int
	Store      CacheStore
	Aggregator Aggregator
	Metrics    MetricsRecorder
}

// metricEngine serves one metric by reading the cache, refreshing it from upstream when expired and falling back to
// the last known value when the refresh fails
type metricEngine struct {
	key        string
	ttl        time.Duration
	siteIDs    []int
	store      CacheStore
	aggregator Aggregator
	metrics    MetricsRecorder
}

// NewMetricEngine creates a new engine instance
func NewMetricEngine(args ArgsMetricEngine) (*metricEngine, error) {
	if len(args.Key) == 0 {
		return nil, errInvalidKey
	}
	if args.TTL <= 0 {
		return nil, errInvalidTTL
	}
	if check.IfNil(args.Store) {
		return nil, errNilCacheStore
	}
	if check.IfNil(args.Aggregator) {
		return nil, errNilAggregator
	}
	if check.IfNil(args.Metrics) {
		return nil, errNilMetricsRecorder
	}

	siteIDs := make([]int, len(args.SiteIDs))
	copy(siteIDs, args.SiteIDs)

	return &metricEngine{
		key:        args.Key,
		ttl:        args.TTL,
		siteIDs:    siteIDs,
		store:      args.Store,
		aggregator: args.Aggregator,
		metrics:    args.Metrics,
	}, nil
}

// Process returns the payload to be served. An error is returned only when no cached value could be served
func (e *metricEngine) Process(ctx context.Context) (*common.MetricResult, error) {
	payload, found := e.store.ReadFresh(ctx, e.key, e.ttl)
	if found {
		return e.result(payload, common.OutcomeCacheHit), nil
	}

	if len(e.siteIDs) == 0 {
		return e.fallback(ctx, common.NewConfigError(common.ErrEmptySiteList))
	}

	response, err := e.aggregator.Aggregate(ctx, e.siteIDs)
	if err != nil {
		return e.fallback(ctx, err)
	}

	payload, err = json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("%w while marshaling the %s response", err, e.key)
	}

	if !e.store.Write(ctx, e.key, payload) {
		log.Warn("fresh value not cached, serving it anyway", "metric", e.key)
	}

	return e.result(payload, common.OutcomeFresh), nil
}

func (e *metricEngine) fallback(ctx context.Context, cause error) (*common.MetricResult, error) {
	log.Warn("refresh failed, trying the stale value", "metric", e.key, "error", cause)

	payload, found := e.store.ReadAny(ctx, e.key)
	if !found {
		log.Error("no cached value to fall back to", "metric", e.key, "error", cause)
		return nil, cause
	}

	return e.result(payload, common.OutcomeStaleFallback), nil
}

func (e *metricEngine) result(payload []byte, outcome string) *common.MetricResult {
	log.Debug("serving metric", "metric", e.key, "outcome", outcome)
	e.metrics.RecordOutcome(e.key, outcome)

	return &common.MetricResult{
		Payload: payload,
		Outcome: outcome,
	}
}

// Key returns the cache key of the served metric
func (e *metricEngine) Key() string {
	return e.key
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *metricEngine) IsInterfaceNil() bool {
	return e == nil
}
