package lifecycle

import (
	"go.uber.org/multierr"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
)

// Scope releases what was added to it, last in first out, when closed.
// Defer Close right after creating a scope so every exit path releases:
//
//	s := lifecycle.NewScope()
//	defer s.Close()
//
// Constructors use Dismiss to hand everything acquired so far to the new
// owner once construction has succeeded.
type Scope struct {
	items  []disposable.Disposable
	closed bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers d for release when the scope closes. Adding to a closed
// scope releases d immediately and reports the misuse.
func (s *Scope) Add(d disposable.Disposable) error {
	if s.closed {
		misuse := errors.New(errors.PhaseScope, errors.KindUsedAfterRelease).
			Type("lifecycle.Scope").
			Detail("add to closed scope").
			Build()
		return multierr.Append(misuse, d.Release())
	}
	s.items = append(s.items, d)
	return nil
}

// AddHandle registers a raw handle for freeing when the scope closes.
func (s *Scope) AddHandle(h disposable.Handle) error {
	return s.Add(&handleOnce{h: h})
}

// Len returns the number of values the scope will release.
func (s *Scope) Len() int {
	return len(s.items)
}

// Dismiss forgets everything added so far without releasing it.
func (s *Scope) Dismiss() {
	s.items = nil
}

// Close releases everything added, most recent first. Later calls do
// nothing and return nil.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	for i := len(s.items) - 1; i >= 0; i-- {
		if rerr := s.items[i].Release(); rerr != nil {
			err = multierr.Append(err, errors.Wrap(errors.PhaseScope, errors.KindRelease, rerr, "close scope"))
		}
	}
	s.items = nil
	return err
}

type handleOnce struct {
	h    disposable.Handle
	done bool
}

func (h *handleOnce) Release() error {
	if h.done {
		return nil
	}
	h.done = true
	return h.h.Free()
}

// Using runs fn with d and releases d afterwards, whether fn fails or not.
// The release error, if any, is combined with fn's.
func Using[T disposable.Disposable](d T, fn func(T) error) (err error) {
	defer func() {
		err = multierr.Append(err, d.Release())
	}()
	return fn(d)
}
