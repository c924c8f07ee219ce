package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0123456789abcdef0123456789abcdef"

func createMockArgs(baseURL string) ArgsMatomoClient {
	return ArgsMatomoClient{
		BaseURL:    baseURL,
		TokenAuth:  testToken,
		UserAgent:  "MatomoRTDashboard/1.0",
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Metrics:    &testsCommon.MetricsStub{},
	}
}

func TestNewMatomoClient(t *testing.T) {
	t.Parallel()

	t.Run("invalid timeout should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs("http://localhost")
		args.Timeout = 0
		client, err := NewMatomoClient(args)
		assert.Nil(t, client)
		assert.True(t, client.IsInterfaceNil())
		assert.Equal(t, errInvalidTimeout, err)
	})
	t.Run("negative retries should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs("http://localhost")
		args.MaxRetries = -1
		client, err := NewMatomoClient(args)
		assert.Nil(t, client)
		assert.Equal(t, errInvalidMaxRetries, err)
	})
	t.Run("negative retry delay should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs("http://localhost")
		args.RetryDelay = -time.Second
		client, err := NewMatomoClient(args)
		assert.Nil(t, client)
		assert.Equal(t, errInvalidRetryDelay, err)
	})
	t.Run("nil metrics should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs("http://localhost")
		args.Metrics = nil
		client, err := NewMatomoClient(args)
		assert.Nil(t, client)
		assert.Equal(t, errNilMetricsRecorder, err)
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		client, err := NewMatomoClient(createMockArgs("http://localhost/"))
		assert.Nil(t, err)
		assert.False(t, client.IsInterfaceNil())
		assert.Equal(t, "http://localhost", client.baseURL)
	})
}

func TestMatomoClient_CheckConfig(t *testing.T) {
	t.Parallel()

	args := createMockArgs("")
	client, _ := NewMatomoClient(args)
	err := client.CheckConfig()
	assert.True(t, common.IsConfigError(err))
	assert.ErrorIs(t, err, common.ErrMissingConnectionSettings)

	args = createMockArgs("http://localhost")
	args.TokenAuth = ""
	client, _ = NewMatomoClient(args)
	assert.True(t, common.IsConfigError(client.CheckConfig()))

	client, _ = NewMatomoClient(createMockArgs("http://localhost"))
	assert.Nil(t, client.CheckConfig())

	numCalls := 0
	args = createMockArgs("")
	args.Metrics = &testsCommon.MetricsStub{
		RecordUpstreamCallHandler: func(method string, err error, duration time.Duration) {
			numCalls++
		},
	}
	client, _ = NewMatomoClient(args)
	body, err := client.Call(context.Background(), "Live.getCounters", nil)
	assert.Nil(t, body)
	assert.True(t, common.IsConfigError(err))
	assert.Zero(t, numCalls, "a misconfigured client should not reach the network")
}

func TestMatomoClient_Call(t *testing.T) {
	t.Parallel()

	t.Run("should build the query and return the body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/index.php", r.URL.Path)
			assert.Equal(t, "MatomoRTDashboard/1.0", r.Header.Get("User-Agent"))

			query := r.URL.Query()
			assert.Equal(t, "API", query.Get("module"))
			assert.Equal(t, "Live.getCounters", query.Get("method"))
			assert.Equal(t, "JSON", query.Get("format"))
			assert.Equal(t, testToken, query.Get("token_auth"))
			assert.Equal(t, "3", query.Get("idSite"))
			assert.Equal(t, "30", query.Get("lastMinutes"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"visits":12,"actions":30}]`))
		}))
		defer server.Close()

		var recordedErr error
		args := createMockArgs(server.URL + "/")
		args.Metrics = &testsCommon.MetricsStub{
			RecordUpstreamCallHandler: func(method string, err error, duration time.Duration) {
				assert.Equal(t, "Live.getCounters", method)
				recordedErr = err
			},
		}
		client, _ := NewMatomoClient(args)

		body, err := client.Call(context.Background(), "Live.getCounters", map[string]string{
			"idSite":      "3",
			"lastMinutes": "30",
			"format":      "XML", // protocol parameters can not be overridden
		})
		require.NoError(t, err)
		assert.Equal(t, `[{"visits":12,"actions":30}]`, string(body))
		assert.Nil(t, recordedErr)
	})
	t.Run("invalid JSON should be retried then fail", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint32(&numCalls, 1)
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer server.Close()

		client, _ := NewMatomoClient(createMockArgs(server.URL))
		body, err := client.Call(context.Background(), "Live.getCounters", nil)
		assert.Nil(t, body)
		assert.True(t, common.IsUpstreamError(err))
		assert.Contains(t, err.Error(), errInvalidJSON.Error())
		assert.Equal(t, uint32(3), atomic.LoadUint32(&numCalls))
	})
	t.Run("transient failure should recover on retry", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddUint32(&numCalls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{}`))
				return
			}
			_, _ = w.Write([]byte(`{"visits":4}`))
		}))
		defer server.Close()

		client, _ := NewMatomoClient(createMockArgs(server.URL))
		body, err := client.Call(context.Background(), "Live.getCounters", nil)
		require.NoError(t, err)
		assert.Equal(t, `{"visits":4}`, string(body))
		assert.Equal(t, uint32(2), atomic.LoadUint32(&numCalls))
	})
	t.Run("upstream reported error should fail fast", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint32(&numCalls, 1)
			_, _ = w.Write([]byte(`{"result":"error","message":"You can't access this resource"}`))
		}))
		defer server.Close()

		client, _ := NewMatomoClient(createMockArgs(server.URL))
		body, err := client.Call(context.Background(), "Live.getCounters", nil)
		assert.Nil(t, body)
		require.True(t, common.IsUpstreamError(err))
		assert.Equal(t, "upstream error: You can't access this resource", err.Error())
		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
	})
	t.Run("upstream error without message should use a default one", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":"error"}`))
		}))
		defer server.Close()

		client, _ := NewMatomoClient(createMockArgs(server.URL))
		_, err := client.Call(context.Background(), "Live.getCounters", nil)
		assert.Contains(t, err.Error(), defaultMessage)
	})
	t.Run("timeout should be retried then fail", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint32(&numCalls, 1)
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		args := createMockArgs(server.URL)
		args.Timeout = 50 * time.Millisecond
		client, _ := NewMatomoClient(args)

		_, err := client.Call(context.Background(), "VisitTime.getVisitInformationPerLocalTime", nil)
		require.True(t, common.IsUpstreamError(err))
		assert.Contains(t, err.Error(), "VisitTime.getVisitInformationPerLocalTime failed (2 retries)")
		assert.NotContains(t, err.Error(), testToken, "the auth token should never leak in errors")
		assert.Equal(t, uint32(3), atomic.LoadUint32(&numCalls))
	})
	t.Run("connection refused should fail without leaking the token", func(t *testing.T) {
		t.Parallel()

		client, _ := NewMatomoClient(createMockArgs("http://127.0.0.1:1"))
		_, err := client.Call(context.Background(), "Live.getCounters", nil)
		require.True(t, common.IsUpstreamError(err))
		assert.False(t, strings.Contains(err.Error(), testToken))
	})
	t.Run("cancelled context should stop retrying", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint32(&numCalls, 1)
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		args := createMockArgs(server.URL)
		args.RetryDelay = time.Minute
		client, _ := NewMatomoClient(args)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.Call(ctx, "Live.getCounters", nil)
		require.True(t, common.IsUpstreamError(err))
		assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
		assert.Less(t, time.Since(start), 10*time.Second)
		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
	})
	t.Run("zero retries should call once", func(t *testing.T) {
		t.Parallel()

		numCalls := uint32(0)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddUint32(&numCalls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		args := createMockArgs(server.URL)
		args.MaxRetries = 0
		client, _ := NewMatomoClient(args)

		_, err := client.Call(context.Background(), "Live.getCounters", nil)
		assert.True(t, common.IsUpstreamError(err))
		assert.Equal(t, uint32(1), atomic.LoadUint32(&numCalls))
	})
}
