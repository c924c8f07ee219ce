package commonGo

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), ".env")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0600))

	return path
}

func TestReadEnvFile(t *testing.T) {
	t.Run("missing file should error", func(t *testing.T) {
		err := ReadEnvFile(filepath.Join(t.TempDir(), "missing.env"), map[string]string{"KEY": ""})
		assert.NotNil(t, err)
	})
	t.Run("missing mandatory key should error", func(t *testing.T) {
		path := writeEnvFile(t, "COMMONGO_TEST_OTHER=value\n")

		err := ReadEnvFile(path, map[string]string{"COMMONGO_TEST_MANDATORY": ""})
		assert.ErrorContains(t, err, "COMMONGO_TEST_MANDATORY is not set")
	})
	t.Run("missing optional key should work", func(t *testing.T) {
		path := writeEnvFile(t, "COMMONGO_TEST_PASSWORD=secret\n")

		m := map[string]string{
			"COMMONGO_TEST_PASSWORD": "",
			"COMMONGO_TEST_TOKEN":    "",
		}
		err := ReadEnvFile(path, m, "COMMONGO_TEST_TOKEN")
		assert.Nil(t, err)
		assert.Equal(t, "secret", m["COMMONGO_TEST_PASSWORD"])
		assert.Empty(t, m["COMMONGO_TEST_TOKEN"])
	})
	t.Run("should read all keys", func(t *testing.T) {
		path := writeEnvFile(t, "COMMONGO_TEST_A=a\nCOMMONGO_TEST_B=b\n")

		m := map[string]string{
			"COMMONGO_TEST_A": "",
			"COMMONGO_TEST_B": "",
		}
		err := ReadEnvFile(path, m)
		assert.Nil(t, err)
		assert.Equal(t, "a", m["COMMONGO_TEST_A"])
		assert.Equal(t, "b", m["COMMONGO_TEST_B"])
	})
}

func TestAttachFileLogger(t *testing.T) {
	t.Parallel()

	log := logger.GetOrCreate("commonGo-test")

	t.Run("no log saving should return nil handler", func(t *testing.T) {
		handler, err := AttachFileLogger(log, "logs", "test", false, t.TempDir())
		assert.Nil(t, err)
		assert.Nil(t, handler)
	})
	t.Run("log saving should create the handler", func(t *testing.T) {
		handler, err := AttachFileLogger(log, "logs", "test", true, t.TempDir())
		require.Nil(t, err)
		require.NotNil(t, handler)

		assert.Nil(t, handler.ChangeFileLifeSpan(time.Hour, 10))
		assert.Nil(t, handler.Close())
	})
}

func TestCronJobStarter(t *testing.T) {
	t.Parallel()

	numCalls := uint32(0)
	ctx, cancel := context.WithCancel(context.Background())
	CronJobStarter(ctx, func(_ context.Context) {
		atomic.AddUint32(&numCalls, 1)
	}, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return atomic.LoadUint32(&numCalls) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	callsAfterCancel := atomic.LoadUint32(&numCalls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, callsAfterCancel, atomic.LoadUint32(&numCalls))
}
