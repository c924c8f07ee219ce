package upstream

import "time"

// MetricsRecorder defines the metrics recorded by the upstream client
type MetricsRecorder interface {
	RecordUpstreamCall(method string, err error, duration time.Duration)
	IsInterfaceNil() bool
}
