package pipeline

import "errors"

var errNilCacheStore = errors.New("nil cache store")
var errNilMetricsRecorder = errors.New("nil metrics recorder")

// ErrUnknownMetric signals a request for a metric that is not served
var ErrUnknownMetric = errors.New("unknown metric")
