package engine

import (
	"context"
	"time"
)

// CacheStore defines the cache operations used when serving a metric
type CacheStore interface {
	ReadFresh(ctx context.Context, key string, ttl time.Duration) ([]byte, bool)
	ReadAny(ctx context.Context, key string) ([]byte, bool)
	Write(ctx context.Context, key string, payload []byte) bool
	IsInterfaceNil() bool
}

// Aggregator defines a component able to build the fresh response of one metric
type Aggregator interface {
	// Aggregate returns a JSON serializable response or a ConfigError/UpstreamError
	Aggregate(ctx context.Context, siteIDs []int) (interface{}, error)
	IsInterfaceNil() bool
}

// MetricsRecorder records the outcome of every served request
type MetricsRecorder interface {
	RecordOutcome(metric string, outcome string)
	IsInterfaceNil() bool
}
