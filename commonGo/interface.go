package commonGo

import "time"

// FileLoggingHandler defines the actions that a file logging handler should be able to do
type FileLoggingHandler interface {
	ChangeFileLifeSpan(lifeSpan time.Duration, sizeLifeSpanInMB uint64) error
	Close() error
	IsInterfaceNil() bool
}
