package factory

import (
	"fmt"

	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/api"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/cache"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/observability"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ArgsComponentsHandler is the DTO used to create the components handler
type ArgsComponentsHandler struct {
	Config        config.Config
	Settings      config.Settings
	AdminPassword string
}

type componentsHandler struct {
	metrics   *observability.Metrics
	store     CacheStore
	dashboard api.Dashboard
	server    Server
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(args ArgsComponentsHandler) (*componentsHandler, error) {
	cfg := args.Config

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	store, err := createCacheStore(cfg.Cache, metrics)
	if err != nil {
		return nil, err
	}

	holder, err := pipeline.NewPipelineHolder(pipeline.ArgsPipelineHolder{
		BaseConfig:   cfg,
		Settings:     args.Settings,
		SettingsFile: cfg.Admin.SettingsFile,
		Store:        store,
		Metrics:      metrics,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	serverArgs := api.ArgsWebServer{
		ListenAddress:    cfg.ListenAddress,
		StaticDir:        cfg.StaticDir,
		AdminUsername:    cfg.Admin.Username,
		AdminPassword:    args.AdminPassword,
		MaxLoginAttempts: cfg.Admin.MaxLoginAttempts,
		LoginCooldown:    cfg.Admin.LoginCooldown(),
		TokenLifetime:    cfg.Admin.TokenLifetime(),
		Dashboard:        holder,
		MetricsHandler:   metrics.Handler(),
		GeneralHandler:   api.CORSMiddleware,
	}

	server, err := api.NewServer(serverArgs)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &componentsHandler{
		metrics:   metrics,
		store:     store,
		dashboard: holder,
		server:    server,
	}, nil
}

func createCacheStore(cfg config.CacheConfig, metrics cache.MetricsRecorder) (CacheStore, error) {
	switch cfg.Backend {
	case config.CacheBackendFile:
		return cache.NewFileStore(cfg.Directory, metrics)
	case config.CacheBackendSQLite:
		return cache.NewSQLiteStore(cfg.SQLitePath, metrics)
	case config.CacheBackendRedis:
		return cache.NewRedisStore(cache.ArgsRedisStore{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
			Metrics:   metrics,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend '%s'", cfg.Backend)
	}
}

// GetStore returns the cache store component
func (ch *componentsHandler) GetStore() CacheStore {
	return ch.store
}

// GetDashboard returns the component serving the dashboard operations
func (ch *componentsHandler) GetDashboard() api.Dashboard {
	return ch.dashboard
}

// GetMetrics returns the metrics component
func (ch *componentsHandler) GetMetrics() *observability.Metrics {
	return ch.metrics
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.server.Start()
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	_ = ch.server.Close()
	_ = ch.store.Close()
}
