package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/matomo-dashboard/commonGo"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	dashboard      Dashboard
	username       string
	password       string
	listenAddr     string
	staticDir      string
	jwtSecret      []byte
	tokenLifetime  time.Duration
	limiter        *loginLimiter
	metricsHandler http.Handler
	generalHandler func(http.Handler) http.Handler
	cancel         func()
	wg             sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress    string
	StaticDir        string
	AdminUsername    string
	AdminPassword    string
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	TokenLifetime    time.Duration
	Dashboard        Dashboard
	MetricsHandler   http.Handler
	GeneralHandler   func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Dashboard) {
		return nil, errNilDashboard
	}
	if args.GeneralHandler == nil {
		return nil, errNilGeneralHandler
	}
	if len(args.AdminPassword) == 0 {
		return nil, errEmptyAdminPassword
	}
	if args.MaxLoginAttempts <= 0 {
		return nil, errInvalidMaxLoginAttempts
	}
	if args.LoginCooldown <= 0 {
		return nil, errInvalidLoginCooldown
	}
	if args.TokenLifetime <= 0 {
		return nil, errInvalidTokenLifetime
	}

	// the JWT secret is derived from the admin password and a per-process salt
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	h := hmac.New(sha256.New, []byte(args.AdminPassword))
	h.Write(salt)
	jwtSecret := h.Sum(nil)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(requestIDMiddleware(), gin.CustomRecovery(recoveryHandler))

	s := &server{
		router:         router,
		dashboard:      args.Dashboard,
		username:       args.AdminUsername,
		password:       args.AdminPassword,
		listenAddr:     args.ListenAddress,
		staticDir:      args.StaticDir,
		jwtSecret:      jwtSecret,
		tokenLifetime:  args.TokenLifetime,
		limiter:        newLoginLimiter(args.MaxLoginAttempts, args.LoginCooldown),
		metricsHandler: args.MetricsHandler,
		generalHandler: args.GeneralHandler,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")

	// Public dashboard endpoints
	api.GET("/active_30", s.handleMetric(common.KeyActive30))
	api.GET("/hourly_today", s.handleMetric(common.KeyHourlyToday))
	api.GET("/health", s.handleHealth)

	// Admin authentication
	api.POST("/auth/login", s.handleLogin)

	// Protected admin endpoints
	admin := api.Group("/admin")
	admin.Use(s.authJWT())
	{
		admin.GET("/settings", s.handleGetSettings)
		admin.PUT("/settings", s.handlePutSettings)
		admin.POST("/cache/clear", s.handleClearCache)
		admin.POST("/test-connection", s.handleTestConnection)
	}

	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	s.router.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, common.CodeMethodNotAllowed, "method not allowed")
	})

	if s.staticDir == "" {
		s.router.NoRoute(func(c *gin.Context) {
			writeError(c, http.StatusNotFound, common.CodeNotFound, "route not found")
		})
		return
	}

	log.Info("serving static files", "dir", s.staticDir)
	s.router.Static("/static", path.Join(s.staticDir, "static"))
	s.router.StaticFile("/favicon.ico", path.Join(s.staticDir, "favicon.ico"))

	// NoRoute for SPA fallback
	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			writeError(c, http.StatusNotFound, common.CodeNotFound, "api route not found")
			return
		}

		c.File(path.Join(s.staticDir, "index.html"))
	})
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:              s.listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	commonGo.CronJobStarter(ctx, s.limiter.prune, s.limiter.cooldown)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}
