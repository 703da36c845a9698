package lifecycle

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the lifecycle package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the lifecycle package's logger.
// This must be called before any owners are created; owners capture the
// logger at construction.
func SetLogger(l *zap.Logger) {
	logger = l
}
