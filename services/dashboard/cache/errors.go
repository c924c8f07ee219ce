package cache

import "errors"

var errNilMetricsRecorder = errors.New("nil metrics recorder")
var errInvalidKey = errors.New("invalid cache key")
var errInvalidPayload = errors.New("payload is not valid JSON")
var errEmptyDirectory = errors.New("empty cache directory")
var errEmptyRedisAddress = errors.New("empty redis address")
