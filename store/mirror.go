package store

import (
	"go.uber.org/multierr"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

const mirrorName = "store.Mirror"

// Mirror writes every byte to two buffers. It holds no raw handles of its
// own, only the buffers as owned disposables, so it registers no
// fallback: each buffer has its own.
type Mirror struct {
	owner     *lifecycle.Owner
	primary   *Buffer
	secondary *Buffer
}

// NewMirror allocates two buffers of the given capacity. opts apply to the
// mirror and both buffers.
func NewMirror(h *heap.Heap, capacity uint32, opts ...lifecycle.Option) (*Mirror, error) {
	s := lifecycle.NewScope()
	defer s.Close()

	primary, err := NewBuffer(h, capacity, opts...)
	if err != nil {
		return nil, errors.AcquisitionFailed(mirrorName, "primary buffer", err)
	}
	_ = s.Add(primary)

	secondary, err := NewBuffer(h, capacity, opts...)
	if err != nil {
		return nil, errors.AcquisitionFailed(mirrorName, "secondary buffer", err)
	}
	_ = s.Add(secondary)

	m := &Mirror{primary: primary, secondary: secondary}
	m.owner = lifecycle.New(lifecycle.Level{
		Name:  mirrorName,
		Owned: []disposable.Disposable{primary, secondary},
	}, opts...)

	s.Dismiss()
	return m, nil
}

// Write appends p to both buffers.
func (m *Mirror) Write(p []byte) (int, error) {
	if err := m.owner.Guard(); err != nil {
		return 0, err
	}
	if _, err := m.primary.Write(p); err != nil {
		return 0, err
	}
	if _, err := m.secondary.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Bytes returns the primary copy.
func (m *Mirror) Bytes() ([]byte, error) {
	if err := m.owner.Guard(); err != nil {
		return nil, err
	}
	return m.primary.Bytes()
}

// Reset empties both buffers.
func (m *Mirror) Reset() error {
	if err := m.owner.Guard(); err != nil {
		return err
	}
	return multierr.Append(m.primary.Reset(), m.secondary.Reset())
}

// Primary returns the first buffer.
func (m *Mirror) Primary() *Buffer {
	return m.primary
}

// Secondary returns the second buffer.
func (m *Mirror) Secondary() *Buffer {
	return m.secondary
}

// Release releases both buffers. Later calls do nothing.
func (m *Mirror) Release() error {
	return m.owner.Release()
}

// Released reports whether the mirror was released.
func (m *Mirror) Released() bool {
	return m.owner.Released()
}

// FallbackArmed is always false for a mirror.
func (m *Mirror) FallbackArmed() bool {
	return m.owner.FallbackArmed()
}
