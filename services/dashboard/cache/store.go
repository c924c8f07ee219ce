package cache

import (
	"context"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/observability"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("cache")

// cacheStore maps a cache key to the last written JSON payload and its write timestamp. Expired entries are kept so
// they can be served as stale data, entries are only removed by Clear
type cacheStore struct {
	name    string
	backend backend
	metrics MetricsRecorder
	nowFunc func() time.Time
}

func newCacheStore(name string, b backend, metrics MetricsRecorder) (*cacheStore, error) {
	if check.IfNil(metrics) {
		_ = b.close()
		return nil, errNilMetricsRecorder
	}

	return &cacheStore{
		name:    name,
		backend: b,
		metrics: metrics,
		nowFunc: time.Now,
	}, nil
}

// ReadFresh returns the stored payload only if it was written at most ttl ago
func (cs *cacheStore) ReadFresh(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	e, found := cs.read(ctx, key)
	if !found {
		return nil, false
	}

	age := cs.nowFunc().Sub(e.WrittenAt)
	if age > ttl {
		log.Trace("cache entry expired", "key", key, "age", age, "ttl", ttl)
		cs.metrics.RecordCacheRead(key, observability.CacheReadExpired)
		return nil, false
	}

	cs.metrics.RecordCacheRead(key, observability.CacheReadHit)
	return e.Payload, true
}

// ReadAny returns the last stored payload regardless of its age
func (cs *cacheStore) ReadAny(ctx context.Context, key string) ([]byte, bool) {
	e, found := cs.read(ctx, key)
	if !found {
		return nil, false
	}

	cs.metrics.RecordCacheRead(key, observability.CacheReadHit)
	return e.Payload, true
}

func (cs *cacheStore) read(ctx context.Context, key string) (*entry, bool) {
	err := checkKey(key)
	if err != nil {
		log.Warn("cache read rejected", "backend", cs.name, "error", err)
		return nil, false
	}

	data, found, err := cs.backend.load(ctx, key)
	if err != nil {
		log.Warn("cache read failed", "backend", cs.name, "key", key, "error", err)
		cs.metrics.RecordCacheRead(key, observability.CacheReadMiss)
		return nil, false
	}
	if !found {
		cs.metrics.RecordCacheRead(key, observability.CacheReadMiss)
		return nil, false
	}

	e, err := decodeEntry(key, data)
	if err != nil {
		log.Warn("cache corruption detected, treating as a miss", "backend", cs.name, "key", key, "error", err)
		cs.metrics.RecordCacheRead(key, observability.CacheReadCorrupt)
		return nil, false
	}

	return e, true
}

// Write atomically stores the payload. Failures are logged and reported through the returned flag
func (cs *cacheStore) Write(ctx context.Context, key string, payload []byte) bool {
	err := cs.write(ctx, key, payload)
	if err != nil {
		log.Warn("cache write failed", "backend", cs.name, "key", key, "error", err)
	}

	cs.metrics.RecordCacheWrite(key, err == nil)
	return err == nil
}

func (cs *cacheStore) write(ctx context.Context, key string, payload []byte) error {
	err := checkKey(key)
	if err != nil {
		return err
	}

	data, err := encodeEntry(key, payload, cs.nowFunc())
	if err != nil {
		return err
	}

	return cs.backend.save(ctx, key, data)
}

// Clear removes all the stored entries
func (cs *cacheStore) Clear(ctx context.Context) error {
	err := cs.backend.clear(ctx)
	if err != nil {
		return err
	}

	log.Info("cache cleared", "backend", cs.name)
	return nil
}

// Close releases the backend resources
func (cs *cacheStore) Close() error {
	return cs.backend.close()
}

// Name returns the backend name
func (cs *cacheStore) Name() string {
	return cs.name
}

// IsInterfaceNil returns true if the value under the interface is nil
func (cs *cacheStore) IsInterfaceNil() bool {
	return cs == nil
}
