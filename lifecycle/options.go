package lifecycle

import "go.uber.org/zap"

type config struct {
	reclaimer      Reclaimer
	logger         *zap.Logger
	observers      []Observer
	checkGoroutine bool
}

func newConfig(opts []Option) config {
	cfg := config{
		reclaimer: defaultReclaimer,
		logger:    Logger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures an Owner.
type Option func(*config)

// WithReclaimer sets the facility that runs the automatic fallback.
// The default is RuntimeReclaimer.
func WithReclaimer(r Reclaimer) Option {
	return func(c *config) {
		if r != nil {
			c.reclaimer = r
		}
	}
}

// WithLogger overrides the package logger for one owner.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver subscribes o to the owner's lifecycle events.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithGoroutineCheck logs a warning whenever the owner is guarded or
// released on a goroutine other than the one that created it.
func WithGoroutineCheck() Option {
	return func(c *config) {
		c.checkGoroutine = true
	}
}
