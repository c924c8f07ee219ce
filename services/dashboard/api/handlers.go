package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
)

const redactedTokenPrefixLen = 4

// settingsRequest is the body accepted on PUT /api/admin/settings. An empty token keeps the current one
type settingsRequest struct {
	config.Settings
	ClearCache bool `json:"clear_cache"`
}

func (s *server) handleMetric(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.dashboard.ProcessMetric(c.Request.Context(), key)
		if err != nil {
			writeMetricError(c, key, err)
			return
		}

		c.Header(headerCacheOutcome, result.Outcome)
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, contentTypeJSON, result.Payload)
	}
}

// writeMetricError answers with the error envelope and a 200 status so the dashboard keeps polling
func writeMetricError(c *gin.Context, key string, err error) {
	switch {
	case common.IsConfigError(err):
		writeError(c, http.StatusOK, common.CodeConfigError, err.Error())
	case common.IsUpstreamError(err):
		writeError(c, http.StatusOK, common.CodeUpstreamError, err.Error())
	default:
		log.Error("unexpected error while serving metric", "metric", key, "error", err)
		writeError(c, http.StatusOK, common.CodeInternalError, "internal error")
	}
}

func (s *server) handleHealth(c *gin.Context) {
	response := s.dashboard.Health(c.Request.Context())

	status := http.StatusOK
	if !response.OK {
		status = http.StatusInternalServerError
	}

	c.JSON(status, response)
}

func (s *server) handleGetSettings(c *gin.Context) {
	settings := s.dashboard.Settings()
	settings.TokenAuth = redactToken(settings.TokenAuth)

	c.JSON(http.StatusOK, settings)
}

func (s *server) handlePutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, common.CodeValidationError, "invalid payload")
		return
	}

	settings := req.Settings
	if len(settings.TokenAuth) == 0 {
		settings.TokenAuth = s.dashboard.Settings().TokenAuth
	}

	err := s.dashboard.ApplySettings(c.Request.Context(), settings, req.ClearCache)
	if err != nil {
		validationErr := &config.ValidationError{}
		if errors.As(err, &validationErr) {
			writeError(c, http.StatusBadRequest, common.CodeValidationError, err.Error())
			return
		}

		log.Error("failed to apply settings", "error", err)
		writeError(c, http.StatusInternalServerError, common.CodeInternalError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "cache_cleared": req.ClearCache})
}

func (s *server) handleClearCache(c *gin.Context) {
	err := s.dashboard.ClearCache(c.Request.Context())
	if err != nil {
		log.Error("failed to clear the cache", "error", err)
		writeError(c, http.StatusInternalServerError, common.CodeInternalError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleTestConnection(c *gin.Context) {
	err := s.dashboard.TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func redactToken(token string) string {
	if len(token) <= redactedTokenPrefixLen {
		return ""
	}

	return token[:redactedTokenPrefixLen] + "****"
}
