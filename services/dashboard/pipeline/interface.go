package pipeline

import (
	"context"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
)

// CacheStore defines the cache operations shared by all the pipelines
type CacheStore interface {
	ReadFresh(ctx context.Context, key string, ttl time.Duration) ([]byte, bool)
	ReadAny(ctx context.Context, key string) ([]byte, bool)
	Write(ctx context.Context, key string, payload []byte) bool
	Clear(ctx context.Context) error
	IsInterfaceNil() bool
}

// MetricsRecorder gathers all the recordings done by the components of a pipeline
type MetricsRecorder interface {
	RecordUpstreamCall(method string, err error, duration time.Duration)
	RecordSiteFailure(metric string)
	RecordOutcome(metric string, outcome string)
	IsInterfaceNil() bool
}

// UpstreamClient defines the upstream operations used for probing
type UpstreamClient interface {
	Call(ctx context.Context, method string, params map[string]string) ([]byte, error)
	CheckConfig() error
	IsInterfaceNil() bool
}

// MetricEngine serves a single metric
type MetricEngine interface {
	Process(ctx context.Context) (*common.MetricResult, error)
	IsInterfaceNil() bool
}
