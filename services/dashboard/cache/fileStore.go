package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileExtension     = ".json"
	filePermissions   = 0644
	tempFileSuffix    = ".tmp-*"
	fileBackendName   = "file"
	directoryPermBits = 0755
)

// fileBackend keeps one JSON envelope file per key. Writers of the same key are serialized by a per-key mutex and
// publish through rename, so readers never observe a partially written file
type fileBackend struct {
	directory string
	mutLocks  sync.Mutex
	locks     map[string]*sync.Mutex
}

// NewFileStore creates a cache store persisting every key as a file inside the provided directory
func NewFileStore(directory string, metrics MetricsRecorder) (*cacheStore, error) {
	if len(directory) == 0 {
		return nil, errEmptyDirectory
	}

	err := os.MkdirAll(directory, directoryPermBits)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	b := &fileBackend{
		directory: directory,
		locks:     make(map[string]*sync.Mutex),
	}

	return newCacheStore(fileBackendName, b, metrics)
}

func (fb *fileBackend) path(key string) string {
	return filepath.Join(fb.directory, key+fileExtension)
}

func (fb *fileBackend) keyLock(key string) *sync.Mutex {
	fb.mutLocks.Lock()
	defer fb.mutLocks.Unlock()

	mut, ok := fb.locks[key]
	if !ok {
		mut = &sync.Mutex{}
		fb.locks[key] = mut
	}

	return mut
}

func (fb *fileBackend) load(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(fb.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

func (fb *fileBackend) save(_ context.Context, key string, data []byte) error {
	mut := fb.keyLock(key)
	mut.Lock()
	defer mut.Unlock()

	tmp, err := os.CreateTemp(fb.directory, key+fileExtension+tempFileSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to write temporary cache file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close temporary cache file: %w", closeErr)
	}

	err = os.Chmod(tmpName, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to set cache file permissions: %w", err)
	}

	return os.Rename(tmpName, fb.path(key))
}

func (fb *fileBackend) clear(_ context.Context) error {
	files, err := filepath.Glob(filepath.Join(fb.directory, "*"+fileExtension))
	if err != nil {
		return err
	}

	for _, file := range files {
		err = os.Remove(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove cache file: %w", err)
		}
	}

	return nil
}

func (fb *fileBackend) close() error {
	return nil
}
