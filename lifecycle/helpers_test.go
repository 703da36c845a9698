package lifecycle

import (
	"sync"
)

// recorder collects release events from fakes in the order they happen.
type recorder struct {
	events []string
	mu     sync.Mutex
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeHandle struct {
	err   error
	rec   *recorder
	name  string
	frees int
	panic bool
}

func (h *fakeHandle) Free() error {
	h.frees++
	if h.rec != nil {
		h.rec.add("free " + h.name)
	}
	if h.panic {
		panic("free " + h.name)
	}
	return h.err
}

type fakeDisposable struct {
	err      error
	rec      *recorder
	name     string
	releases int
}

func (d *fakeDisposable) Release() error {
	d.releases++
	if d.rec != nil {
		d.rec.add("release " + d.name)
	}
	return d.err
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
