package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/commonGo"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/factory"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/testsCommon"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/stretchr/testify/require"
)

var log = logger.GetOrCreate("e2e-test")

const (
	adminUser     = "admin"
	adminPassword = "password"
	headerOutcome = "X-Cache-Outcome"
)

var testToken = strings.Repeat("a", config.MinTokenLength)

func matomoResponder(method string, idSite string, _ url.Values) (int, string) {
	switch method {
	case common.MethodLiveCounters:
		id, _ := strconv.Atoi(idSite)
		return http.StatusOK, fmt.Sprintf(`[{"visits": %d, "actions": 0, "visitors": %d}]`, id*10, id*10)
	case common.MethodVisitInfoPerLocalTime:
		return http.StatusOK, `[{"label": "0h", "nb_visits": 1}, {"label": "9h", "nb_visits": 4}, {"label": "23h", "nb_visits": 2}]`
	default:
		return http.StatusOK, `{"result": "error", "message": "unknown method"}`
	}
}

func failingResponder(_ string, _ string, _ url.Values) (int, string) {
	return http.StatusServiceUnavailable, `<html>maintenance</html>`
}

type dashboardClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func (dc *dashboardClient) do(t *testing.T, method string, path string, body interface{}) (int, http.Header, []byte) {
	var reader io.Reader
	if body != nil {
		buff, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buff)
	}

	req, err := http.NewRequest(method, dc.baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(dc.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+dc.token)
	}

	resp, err := dc.client.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, resp.Header, data
}

func ageCacheEntry(t *testing.T, cacheDir string, key string, age time.Duration) {
	path := filepath.Join(cacheDir, key+".json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &stored))

	writtenAt, err := json.Marshal(time.Now().Add(-age))
	require.NoError(t, err)
	stored["written_at"] = writtenAt

	data, err = json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestE2EFlow(t *testing.T) {
	log.Info("======== 1. Start a fake Matomo instance")
	matomo := testsCommon.NewMatomoServerStub(matomoResponder)
	defer matomo.Close()

	log.Info("======== 2. Start the dashboard service via componentsHandler")
	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, "cache")
	cfg := config.Config{
		ListenAddress: "127.0.0.1:0",
		Timezone:      "UTC",
		Upstream: config.UpstreamConfig{
			BaseURL:          matomo.URL,
			TokenAuth:        testToken,
			SiteIDs:          []int{2, 1},
			TimeoutInSeconds: 2,
			MaxRetries:       1,
		},
		Cache: config.CacheConfig{
			Backend:              config.CacheBackendFile,
			Directory:            cacheDir,
			Active30TTLInSeconds: 60,
			HourlyTTLInSeconds:   300,
		},
		Admin: config.AdminConfig{
			Username:               adminUser,
			SettingsFile:           filepath.Join(tempDir, "settings.json"),
			MaxLoginAttempts:       3,
			LoginCooldownInSeconds: 60,
			TokenLifetimeInHours:   1,
		},
	}

	handler, err := factory.NewComponentsHandler(factory.ArgsComponentsHandler{
		Config:        cfg,
		AdminPassword: adminPassword,
	})
	require.NoError(t, err)

	handler.Start()
	defer handler.Close()

	dc := &dashboardClient{
		baseURL: "http://" + handler.GetServer().Address(),
		client:  &http.Client{Timeout: 5 * time.Second},
	}

	log.Info("======== 3. First active_30 call should be fresh")
	status, header, body := dc.do(t, http.MethodGet, "/api/active_30", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeFresh, header.Get(headerOutcome))

	active30 := &common.Active30Response{}
	require.NoError(t, json.Unmarshal(body, active30))
	require.Equal(t, 30, active30.TotalActive30)
	require.Equal(t, 60, active30.TTL)
	require.Equal(t, []common.SiteActive30{{IDSite: 2, Active30: 20}, {IDSite: 1, Active30: 10}}, active30.BySite)
	numCallsAfterFresh := matomo.NumCalls()

	log.Info("======== 4. Second active_30 call should be served from cache")
	status, header, secondBody := dc.do(t, http.MethodGet, "/api/active_30", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeCacheHit, header.Get(headerOutcome))
	require.Equal(t, body, secondBody)
	require.Equal(t, numCallsAfterFresh, matomo.NumCalls())

	log.Info("======== 5. hourly_today should sum the sites hour by hour")
	status, header, body = dc.do(t, http.MethodGet, "/api/hourly_today", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeFresh, header.Get(headerOutcome))

	hourly := &common.HourlyResponse{}
	require.NoError(t, json.Unmarshal(body, hourly))
	require.Len(t, hourly.Hours, 24)
	require.Len(t, hourly.Visits, 24)
	require.Equal(t, 2, hourly.Visits[0])
	require.Equal(t, 8, hourly.Visits[9])
	require.Equal(t, 4, hourly.Visits[23])
	require.Len(t, hourly.BySite, 2)

	log.Info("======== 6. Dashboard clients polling should only hit the cache")
	numCalls := matomo.NumCalls()
	numPolls := uint32(0)
	numNonHits := uint32(0)
	ctx, cancel := context.WithCancel(context.Background())
	commonGo.CronJobStarter(ctx, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}

		resp, errGet := dc.client.Get(dc.baseURL + "/api/active_30")
		if errGet != nil {
			atomic.AddUint32(&numNonHits, 1)
			return
		}
		_ = resp.Body.Close()

		if resp.Header.Get(headerOutcome) != common.OutcomeCacheHit {
			atomic.AddUint32(&numNonHits, 1)
		}
		atomic.AddUint32(&numPolls, 1)
	}, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadUint32(&numPolls) >= 5
	}, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.Zero(t, atomic.LoadUint32(&numNonHits))
	require.Equal(t, numCalls, matomo.NumCalls())

	log.Info("======== 7. An expired entry should be served stale while Matomo is down")
	matomo.SetResponder(failingResponder)
	ageCacheEntry(t, cacheDir, common.KeyActive30, time.Hour)

	status, header, body = dc.do(t, http.MethodGet, "/api/active_30", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeStaleFallback, header.Get(headerOutcome))
	require.Equal(t, secondBody, body)

	log.Info("======== 8. Login as admin")
	status, _, _ = dc.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": adminUser,
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _, body = dc.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"username": adminUser,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, status)

	var loginData struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &loginData))
	require.NotEmpty(t, loginData.Token)
	dc.token = loginData.Token

	log.Info("======== 9. Settings should be readable with a redacted token")
	status, _, body = dc.do(t, http.MethodGet, "/api/admin/settings", nil)
	require.Equal(t, http.StatusOK, status)

	settings := config.Settings{}
	require.NoError(t, json.Unmarshal(body, &settings))
	require.Equal(t, matomo.URL, settings.MatomoURL)
	require.Equal(t, "aaaa****", settings.TokenAuth)
	require.Equal(t, []int{2, 1}, settings.SiteIDs)

	log.Info("======== 10. Test connection should report the outage")
	status, _, body = dc.do(t, http.MethodPost, "/api/admin/test-connection", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), `"ok":false`)

	log.Info("======== 11. Matomo recovers, settings change and the cache is cleared")
	matomo.SetResponder(matomoResponder)
	status, _, body = dc.do(t, http.MethodPut, "/api/admin/settings", map[string]interface{}{
		"matomo_url":  matomo.URL,
		"site_ids":    []int{3},
		"clear_cache": true,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _, _ = dc.do(t, http.MethodPut, "/api/admin/settings", map[string]interface{}{
		"matomo_url": matomo.URL,
		"site_ids":   []int{0},
	})
	require.Equal(t, http.StatusBadRequest, status)

	status, _, body = dc.do(t, http.MethodPost, "/api/admin/test-connection", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), `"ok":true`)

	status, header, body = dc.do(t, http.MethodGet, "/api/active_30", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeFresh, header.Get(headerOutcome))
	require.NoError(t, json.Unmarshal(body, active30))
	require.Equal(t, 30, active30.TotalActive30)
	require.Equal(t, []common.SiteActive30{{IDSite: 3, Active30: 30}}, active30.BySite)

	_, err = os.Stat(cfg.Admin.SettingsFile)
	require.NoError(t, err)

	log.Info("======== 12. Explicit cache clear should force a fresh fetch")
	status, _, _ = dc.do(t, http.MethodPost, "/api/admin/cache/clear", nil)
	require.Equal(t, http.StatusOK, status)

	status, header, _ = dc.do(t, http.MethodGet, "/api/active_30", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, common.OutcomeFresh, header.Get(headerOutcome))

	log.Info("======== 13. Health should report every check as ok")
	status, _, body = dc.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	health := &common.HealthResponse{}
	require.NoError(t, json.Unmarshal(body, health))
	require.True(t, health.OK)
	require.Equal(t, "ok", health.Checks["upstream"])

	log.Info("======== 14. Admin endpoints should reject missing tokens")
	dc.token = ""
	status, _, _ = dc.do(t, http.MethodGet, "/api/admin/settings", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
