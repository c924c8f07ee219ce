package cache

import "context"

// MetricsRecorder defines the metrics recorded by the cache store
type MetricsRecorder interface {
	RecordCacheRead(key string, result string)
	RecordCacheWrite(key string, success bool)
	IsInterfaceNil() bool
}

// backend is the raw key/value persistence used by the cache store. Implementations must publish a saved value
// atomically: a concurrent load returns either the previous or the new value, never a partial one
type backend interface {
	load(ctx context.Context, key string) ([]byte, bool, error)
	save(ctx context.Context, key string, data []byte) error
	clear(ctx context.Context) error
	close() error
}
