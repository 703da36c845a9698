package disposable

import (
	"context"
	"io"
)

// Disposable is a value that owns resources and releases them on demand.
// Release must be idempotent: calls after the first do nothing and return nil.
type Disposable interface {
	Release() error
}

// Handle is a raw resource that the Go runtime does not track.
// Free must be called exactly once; leaking a Handle is permanent.
type Handle interface {
	Free() error
}

// Func adapts a function to Disposable. The function runs at most once.
type Func func() error

// Release implements Disposable.
func (f *Func) Release() error {
	if f == nil || *f == nil {
		return nil
	}
	fn := *f
	*f = nil
	return fn()
}

// NewFunc returns a Disposable running fn on its first Release.
func NewFunc(fn func() error) Disposable {
	f := Func(fn)
	return &f
}

// HandleFunc adapts a function to Handle.
type HandleFunc func() error

// Free implements Handle.
func (f HandleFunc) Free() error {
	return f()
}

type closer struct {
	c      io.Closer
	closed bool
}

// FromCloser wraps an io.Closer, such as *os.File, as a Disposable.
// Close runs on the first Release only.
func FromCloser(c io.Closer) Disposable {
	return &closer{c: c}
}

func (c *closer) Release() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.c.Close()
}

// ContextCloser is implemented by values closed with a context,
// such as wazero.Runtime and api.Module.
type ContextCloser interface {
	Close(ctx context.Context) error
}

type contextCloser struct {
	ctx    context.Context
	c      ContextCloser
	closed bool
}

// FromContextCloser wraps a ContextCloser as a Disposable closed with ctx.
func FromContextCloser(ctx context.Context, c ContextCloser) Disposable {
	return &contextCloser{ctx: ctx, c: c}
}

func (c *contextCloser) Release() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.c.Close(c.ctx)
}
