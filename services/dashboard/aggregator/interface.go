package aggregator

import "context"

// UpstreamClient defines the operations of the analytics API client used by the aggregators
type UpstreamClient interface {
	Call(ctx context.Context, method string, params map[string]string) ([]byte, error)
	CheckConfig() error
	IsInterfaceNil() bool
}

// MetricsRecorder defines the metrics recorded by the aggregators
type MetricsRecorder interface {
	RecordSiteFailure(metric string)
	IsInterfaceNil() bool
}
