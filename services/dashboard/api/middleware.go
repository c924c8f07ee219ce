package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
)

const (
	headerRequestID    = "X-Request-Id"
	headerCacheOutcome = "X-Cache-Outcome"
	contentTypeJSON    = "application/json; charset=utf-8"
	allowedMethods     = "GET, POST, PUT, OPTIONS"
	allowedHeaders     = "Content-Type, Authorization"
	preflightMaxAge    = "86400"
)

func newErrorEnvelope(code string, message string) common.ErrorEnvelope {
	return common.ErrorEnvelope{
		Error: common.ErrorDetails{
			Code:    code,
			Message: message,
		},
	}
}

func writeError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, newErrorEnvelope(code, message))
}

// CORSMiddleware only lets same-origin browser requests through and adds the security headers on every response
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		setSecurityHeaders(header)

		origin := r.Header.Get("Origin")
		expected := expectedOrigin(r)
		isSameOrigin := len(origin) == 0 || origin == expected

		if r.Method == http.MethodOptions {
			if !isSameOrigin {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			header.Set("Access-Control-Allow-Origin", expected)
			header.Set("Access-Control-Allow-Methods", allowedMethods)
			header.Set("Access-Control-Allow-Headers", allowedHeaders)
			header.Set("Access-Control-Max-Age", preflightMaxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !isSameOrigin {
			log.Warn("cross origin request rejected", "origin", origin, "expected", expected, "path", r.URL.Path)
			writeEnvelope(w, http.StatusForbidden, common.CodeCORSError, "access denied")
			return
		}

		header.Set("Access-Control-Allow-Origin", expected)
		header.Set("Access-Control-Allow-Credentials", "true")
		next.ServeHTTP(w, r)
	})
}

func setSecurityHeaders(header http.Header) {
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "DENY")
	header.Set("X-XSS-Protection", "1; mode=block")
	header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func expectedOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

func writeEnvelope(w http.ResponseWriter, status int, code string, message string) {
	data, _ := json.Marshal(newErrorEnvelope(code, message))

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// requestIDMiddleware tags every request with an id, reusing a valid one provided by the caller
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)

		start := time.Now()
		c.Next()

		log.Debug("request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", requestID,
			"duration", time.Since(start),
		)
	}
}

func recoveryHandler(c *gin.Context, recovered interface{}) {
	log.Error("panic while serving request", "path", c.Request.URL.Path, "panic", recovered)
	writeError(c, http.StatusOK, common.CodeInternalError, "internal error")
}
