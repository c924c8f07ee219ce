package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
)

const jwtHeader = `{"alg":"HS256","typ":"JWT"}`

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginAttempts struct {
	failures    int
	lastFailure time.Time
}

// loginLimiter counts the failed logins per client. A client reaching the limit is blocked until the cooldown
// has passed since its last failure
type loginLimiter struct {
	maxAttempts int
	cooldown    time.Duration
	nowFunc     func() time.Time

	mut     sync.Mutex
	clients map[string]*loginAttempts
}

func newLoginLimiter(maxAttempts int, cooldown time.Duration) *loginLimiter {
	return &loginLimiter{
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		nowFunc:     time.Now,
		clients:     make(map[string]*loginAttempts),
	}
}

func (ll *loginLimiter) isBlocked(client string) bool {
	ll.mut.Lock()
	defer ll.mut.Unlock()

	attempts, found := ll.clients[client]
	if !found {
		return false
	}
	if ll.nowFunc().Sub(attempts.lastFailure) > ll.cooldown {
		delete(ll.clients, client)
		return false
	}

	return attempts.failures >= ll.maxAttempts
}

func (ll *loginLimiter) recordFailure(client string) {
	ll.mut.Lock()
	defer ll.mut.Unlock()

	attempts, found := ll.clients[client]
	if !found {
		attempts = &loginAttempts{}
		ll.clients[client] = attempts
	}

	attempts.failures++
	attempts.lastFailure = ll.nowFunc()
}

func (ll *loginLimiter) reset(client string) {
	ll.mut.Lock()
	delete(ll.clients, client)
	ll.mut.Unlock()
}

// prune forgets the clients whose cooldown has passed
func (ll *loginLimiter) prune(_ context.Context) {
	ll.mut.Lock()
	defer ll.mut.Unlock()

	now := ll.nowFunc()
	for client, attempts := range ll.clients {
		if now.Sub(attempts.lastFailure) > ll.cooldown {
			delete(ll.clients, client)
		}
	}
}

func (ll *loginLimiter) numClients() int {
	ll.mut.Lock()
	defer ll.mut.Unlock()

	return len(ll.clients)
}

func (s *server) handleLogin(c *gin.Context) {
	client := c.ClientIP()
	if s.limiter.isBlocked(client) {
		log.Warn("login rejected, too many failed attempts", "client", client)
		writeError(c, http.StatusTooManyRequests, common.CodeTooManyAttempts, "too many failed attempts, try again later")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, common.CodeValidationError, "invalid payload")
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.password)) == 1
	if !usernameOK || !passwordOK {
		s.limiter.recordFailure(client)
		log.Info("failed login attempt", "client", client)
		writeError(c, http.StatusUnauthorized, common.CodeUnauthorized, "invalid credentials")
		return
	}

	s.limiter.reset(client)
	c.JSON(http.StatusOK, gin.H{"token": s.issueToken(req.Username)})
}

// issueToken generates a basic JWT (Header.Payload.Signature)
func (s *server) issueToken(subject string) string {
	claims, _ := json.Marshal(map[string]interface{}{
		"sub": subject,
		"exp": time.Now().Add(s.tokenLifetime).Unix(),
	})

	header := base64.RawURLEncoding.EncodeToString([]byte(jwtHeader))
	payload := base64.RawURLEncoding.EncodeToString(claims)

	msg := header + "." + payload
	return msg + "." + base64.RawURLEncoding.EncodeToString(s.sign(msg))
}

func (s *server) sign(message string) []byte {
	macd := hmac.New(sha256.New, s.jwtSecret)
	macd.Write([]byte(message))

	return macd.Sum(nil)
}

func (s *server) verifyToken(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return errInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return errInvalidTokenSign
	}
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return errUnauthorized
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err == nil {
		_ = json.Unmarshal(payloadBytes, &claims)
	}
	if time.Now().Unix() > claims.Exp {
		return errTokenExpired
	}

	return nil
}

func (s *server) authJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(c, http.StatusUnauthorized, common.CodeUnauthorized, "missing token")
			return
		}

		err := s.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeError(c, http.StatusUnauthorized, common.CodeUnauthorized, err.Error())
			return
		}

		c.Next()
	}
}
