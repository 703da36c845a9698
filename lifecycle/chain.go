package lifecycle

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
)

type level struct {
	name     string
	handles  []disposable.Handle
	owned    []disposable.Disposable
	released bool
}

// chain is the release state shared between an Owner and its fallback.
// It must never reference the Owner, otherwise the Owner stays reachable
// from its own cleanup and is never collected.
type chain struct {
	logger    *zap.Logger
	name      string
	levels    []*level // most derived first
	observers []Observer
}

func (c *chain) released() bool {
	return c.levels[0].released
}

func (c *chain) hasHandles() bool {
	for _, l := range c.levels {
		if !l.released && len(l.handles) > 0 {
			return true
		}
	}
	return false
}

func (c *chain) emit(e Event) {
	e.Owner = c.name
	for _, o := range c.observers {
		o.OnLifecycleEvent(e)
	}
}

// releaseStep walks the levels from the most derived to the base. Each
// level frees its raw handles, then releases its owned disposables when
// deterministic is set, then marks itself released. A released level
// stops the walk: its parents were released with it.
func (c *chain) releaseStep(deterministic bool) error {
	phase := errors.PhaseRelease
	if !deterministic {
		phase = errors.PhaseFallback
	}

	var err error
	for _, l := range c.levels {
		if l.released {
			break
		}

		for i, h := range l.handles {
			if h == nil {
				continue
			}
			ferr := h.Free()
			if ferr != nil {
				err = multierr.Append(err, errors.ReleaseFailed(phase, c.name, l.name, ferr))
			}
			c.emit(Event{Type: EventHandleFreed, Level: l.name, Index: i, Err: ferr, Deterministic: deterministic})
		}

		if deterministic {
			for i, d := range l.owned {
				if d == nil {
					continue
				}
				rerr := d.Release()
				if rerr != nil {
					err = multierr.Append(err, errors.ReleaseFailed(phase, c.name, l.name, rerr))
				}
				c.emit(Event{Type: EventOwnedReleased, Level: l.name, Index: i, Err: rerr, Deterministic: true})
			}
		}

		l.released = true
		l.handles = nil
		l.owned = nil
		c.emit(Event{Type: EventLevelReleased, Level: l.name, Deterministic: deterministic})
	}
	return err
}

// fallback is the cleanup registered with a Reclaimer. Nothing escapes it.
func (c *chain) fallback() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("fallback release panicked",
				zap.String("owner", c.name),
				zap.Any("panic", r))
		}
	}()

	c.emit(Event{Type: EventFallbackFired})
	if err := c.releaseStep(false); err != nil {
		c.logger.Warn("fallback release failed",
			zap.String("owner", c.name),
			zap.Error(err))
		return
	}
	c.logger.Debug("fallback released owner", zap.String("owner", c.name))
}
