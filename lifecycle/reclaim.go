package lifecycle

import (
	"runtime"
	"sync"
)

// Registration is a pending fallback. Stop deregisters it; a stopped
// fallback never runs.
type Registration interface {
	Stop()
}

// Reclaimer runs an owner's fallback at some point after the owner becomes
// unreachable, if it was not stopped first. The fallback must not be
// retained in a way that keeps o reachable.
type Reclaimer interface {
	Register(o *Owner, fallback func()) Registration
}

var defaultReclaimer Reclaimer = RuntimeReclaimer{}

// RuntimeReclaimer registers fallbacks with runtime.AddCleanup. Fallbacks
// run on the runtime's cleanup goroutine at an unspecified time after a
// garbage collection finds the owner unreachable, or never if the program
// exits first.
type RuntimeReclaimer struct{}

// Register implements Reclaimer.
func (RuntimeReclaimer) Register(o *Owner, fallback func()) Registration {
	return runtime.AddCleanup(o, func(fn func()) { fn() }, fallback)
}

// ManualReclaimer holds fallbacks until Collect is called. It gives tests
// and tools a deterministic stand-in for the garbage collector.
type ManualReclaimer struct {
	pending    []*manualRegistration
	registered int
	fired      int
	mu         sync.Mutex
}

type manualRegistration struct {
	reclaimer *ManualReclaimer
	owner     *Owner
	fallback  func()
}

// NewManualReclaimer creates an empty reclaimer.
func NewManualReclaimer() *ManualReclaimer {
	return &ManualReclaimer{}
}

// Register implements Reclaimer.
func (r *ManualReclaimer) Register(o *Owner, fallback func()) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg := &manualRegistration{reclaimer: r, owner: o, fallback: fallback}
	r.pending = append(r.pending, reg)
	r.registered++
	return reg
}

func (m *manualRegistration) Stop() {
	m.reclaimer.remove(m)
}

func (r *ManualReclaimer) remove(m *manualRegistration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.pending {
		if p == m {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Collect fires the fallback of o as if it had become unreachable.
// Returns false if o has no pending fallback.
func (r *ManualReclaimer) Collect(o *Owner) bool {
	r.mu.Lock()
	var reg *manualRegistration
	for _, p := range r.pending {
		if p.owner == o {
			reg = p
			break
		}
	}
	r.mu.Unlock()

	if reg == nil || !r.remove(reg) {
		return false
	}
	r.run(reg)
	return true
}

// CollectAll fires every pending fallback once and returns how many ran.
func (r *ManualReclaimer) CollectAll() int {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, reg := range pending {
		r.run(reg)
	}
	return len(pending)
}

func (r *ManualReclaimer) run(reg *manualRegistration) {
	reg.fallback()

	r.mu.Lock()
	r.fired++
	r.mu.Unlock()
}

// Pending returns the names of owners whose fallback has not run or been stopped.
func (r *ManualReclaimer) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.pending))
	for i, p := range r.pending {
		names[i] = p.owner.Name()
	}
	return names
}

// Registered returns the total number of fallbacks ever registered.
func (r *ManualReclaimer) Registered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// Fired returns the number of fallbacks that have run.
func (r *ManualReclaimer) Fired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired
}
