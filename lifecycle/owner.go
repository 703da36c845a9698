package lifecycle

import (
	"github.com/petermattis/goid"
	"go.uber.org/zap"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
)

// Level is one layer of an owner: the resources a single type holds
// directly, excluding those of the type it extends.
type Level struct {
	// Name identifies the level; the most derived level names the owner.
	Name string

	// Handles are raw resources freed on every release path.
	Handles []disposable.Handle

	// Owned are disposables released only by a deterministic Release.
	Owned []disposable.Disposable
}

// LevelState reports the state of one level. Handles and Owned count the
// resources still held; both drop to zero on release.
type LevelState struct {
	Name     string
	Handles  int
	Owned    int
	Released bool
}

// Owner implements the release contract for a value owning resources.
// Types embed *Owner, call Guard at the top of every operation, and expose
// Release as their own.
//
// When any level holds raw handles, a single fallback is registered with
// the configured Reclaimer. It frees raw handles, never owned disposables,
// if the owner becomes unreachable without Release. Operations that touch a
// raw handle after their last use of the owner should call
// runtime.KeepAlive on it, so the fallback cannot run mid-operation.
//
// Owner is not safe for concurrent use.
type Owner struct {
	chain          *chain
	reclaimer      Reclaimer
	reg            Registration
	creator        int64
	checkGoroutine bool
}

// New creates an owner whose base level is root.
func New(root Level, opts ...Option) *Owner {
	cfg := newConfig(opts)

	o := &Owner{
		chain: &chain{
			logger:    cfg.logger,
			name:      root.Name,
			observers: cfg.observers,
		},
		reclaimer:      cfg.reclaimer,
		checkGoroutine: cfg.checkGoroutine,
	}
	if cfg.checkGoroutine {
		o.creator = goid.Get()
	}

	o.chain.levels = []*level{newLevel(root)}
	o.arm()
	return o
}

func newLevel(l Level) *level {
	return &level{
		name:    l.Name,
		handles: append([]disposable.Handle(nil), l.Handles...),
		owned:   append([]disposable.Disposable(nil), l.Owned...),
	}
}

// Extend adds a derived level in front of the existing ones. The derived
// level is released before every level it extends. It shares the owner's
// single fallback; if none was registered yet and derived is the first
// level holding raw handles, the fallback is registered now.
func (o *Owner) Extend(derived Level) error {
	if o.chain.released() {
		return errors.UsedAfterRelease(o.chain.name)
	}

	levels := make([]*level, 0, len(o.chain.levels)+1)
	levels = append(levels, newLevel(derived))
	o.chain.levels = append(levels, o.chain.levels...)
	o.chain.name = derived.Name
	o.arm()
	return nil
}

func (o *Owner) arm() {
	if o.reg != nil || !o.chain.hasHandles() {
		return
	}
	o.reg = o.reclaimer.Register(o, o.chain.fallback)
	o.chain.emit(Event{Type: EventFallbackArmed})
}

// Release frees every raw handle and releases every owned disposable,
// most derived level first. The first call stops the fallback before
// releasing; later calls do nothing and return nil. All resources are
// attempted even if some fail; the failures are combined in the result.
func (o *Owner) Release() error {
	o.checkCaller("release")

	if o.chain.released() {
		return nil
	}

	if o.reg != nil {
		o.reg.Stop()
		o.reg = nil
		o.chain.emit(Event{Type: EventFallbackStopped, Deterministic: true})
	}

	return o.chain.releaseStep(true)
}

// Guard returns an errors.UsedAfterRelease error once the owner is
// released, nil before.
func (o *Owner) Guard() error {
	o.checkCaller("guard")

	if o.chain.released() {
		return errors.UsedAfterRelease(o.chain.name)
	}
	return nil
}

// Released reports whether the owner was released, by Release or by its fallback.
func (o *Owner) Released() bool {
	return o.chain.released()
}

// Name returns the name of the most derived level.
func (o *Owner) Name() string {
	return o.chain.name
}

// FallbackArmed reports whether a fallback is registered and has not run.
func (o *Owner) FallbackArmed() bool {
	return o.reg != nil && !o.chain.released()
}

// Levels returns the state of each level, most derived first.
func (o *Owner) Levels() []LevelState {
	states := make([]LevelState, len(o.chain.levels))
	for i, l := range o.chain.levels {
		states[i] = LevelState{
			Name:     l.name,
			Handles:  len(l.handles),
			Owned:    len(l.owned),
			Released: l.released,
		}
	}
	return states
}

func (o *Owner) checkCaller(op string) {
	if !o.checkGoroutine {
		return
	}
	if caller := goid.Get(); caller != o.creator {
		o.chain.logger.Warn("owner used from a foreign goroutine",
			zap.String("owner", o.chain.name),
			zap.String("op", op),
			zap.Int64("creator", o.creator),
			zap.Int64("caller", caller))
	}
}
