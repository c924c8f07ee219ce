package testsCommon

import (
	"context"
	"time"
)

// CacheStoreStub -
type CacheStoreStub struct {
	ReadFreshHandler func(ctx context.Context, key string, ttl time.Duration) ([]byte, bool)
	ReadAnyHandler   func(ctx context.Context, key string) ([]byte, bool)
	WriteHandler     func(ctx context.Context, key string, payload []byte) bool
	ClearHandler     func(ctx context.Context) error
	CloseHandler     func() error
}

// ReadFresh -
func (stub *CacheStoreStub) ReadFresh(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if stub.ReadFreshHandler != nil {
		return stub.ReadFreshHandler(ctx, key, ttl)
	}

	return nil, false
}

// ReadAny -
func (stub *CacheStoreStub) ReadAny(ctx context.Context, key string) ([]byte, bool) {
	if stub.ReadAnyHandler != nil {
		return stub.ReadAnyHandler(ctx, key)
	}

	return nil, false
}

// Write -
func (stub *CacheStoreStub) Write(ctx context.Context, key string, payload []byte) bool {
	if stub.WriteHandler != nil {
		return stub.WriteHandler(ctx, key, payload)
	}

	return true
}

// Clear -
func (stub *CacheStoreStub) Clear(ctx context.Context) error {
	if stub.ClearHandler != nil {
		return stub.ClearHandler(ctx)
	}

	return nil
}

// Close -
func (stub *CacheStoreStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *CacheStoreStub) IsInterfaceNil() bool {
	return stub == nil
}
