package factory

import "github.com/iulianpascalau/matomo-dashboard/services/dashboard/pipeline"

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
}

// CacheStore is a pipeline cache store owning resources that need to be released
type CacheStore interface {
	pipeline.CacheStore
	Close() error
}
