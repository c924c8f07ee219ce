package aggregator

import "errors"

var errNilUpstreamClient = errors.New("nil upstream client")
var errNilMetricsRecorder = errors.New("nil metrics recorder")
var errNilLocation = errors.New("nil location")
var errInvalidTTL = errors.New("invalid TTL")
