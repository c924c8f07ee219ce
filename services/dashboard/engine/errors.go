package engine

import "errors"

var errNilCacheStore = errors.New("nil cache store")
var errNilAggregator = errors.New("nil aggregator")
var errNilMetricsRecorder = errors.New("nil metrics recorder")
var errInvalidKey = errors.New("invalid cache key")
var errInvalidTTL = errors.New("invalid TTL")
