package store

import (
	"runtime"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

const bufferName = "store.Buffer"

// Buffer is a fixed-capacity byte buffer in heap memory. It holds a single
// raw block and nothing else, so its fallback frees the block if the
// buffer is dropped without Release. Buffer is sealed: its owner is not
// exposed, so no type can extend it.
type Buffer struct {
	owner *lifecycle.Owner
	block *heap.Block
	n     uint32
}

// NewBuffer allocates a buffer of the given capacity from h.
func NewBuffer(h *heap.Heap, capacity uint32, opts ...lifecycle.Option) (*Buffer, error) {
	block, err := h.Alloc(capacity)
	if err != nil {
		return nil, errors.AcquisitionFailed(bufferName, "block", err)
	}

	b := &Buffer{block: block}
	b.owner = lifecycle.New(lifecycle.Level{
		Name:    bufferName,
		Handles: []disposable.Handle{block},
	}, opts...)
	return b, nil
}

// Write appends p. A write that does not fit fails without writing anything.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.owner.Guard(); err != nil {
		return 0, err
	}
	if uint64(b.n)+uint64(len(p)) > uint64(b.block.Size()) {
		return 0, errors.OutOfBounds(errors.PhaseOperation, b.n, uint32(len(p)), b.block.Size())
	}
	if err := b.block.Write(b.n, p); err != nil {
		return 0, err
	}
	b.n += uint32(len(p))
	runtime.KeepAlive(b)
	return len(p), nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() ([]byte, error) {
	if err := b.owner.Guard(); err != nil {
		return nil, err
	}
	data, err := b.block.Read(0, b.n)
	runtime.KeepAlive(b)
	return data, err
}

// Reset empties the buffer and zeroes its memory.
func (b *Buffer) Reset() error {
	if err := b.owner.Guard(); err != nil {
		return err
	}
	err := b.block.Write(0, make([]byte, b.n))
	runtime.KeepAlive(b)
	if err != nil {
		return err
	}
	b.n = 0
	return nil
}

// Len returns the number of bytes written, zero after release.
func (b *Buffer) Len() int {
	if b.owner.Released() {
		return 0
	}
	return int(b.n)
}

// Cap returns the buffer capacity, zero after release.
func (b *Buffer) Cap() int {
	if b.owner.Released() {
		return 0
	}
	return int(b.block.Size())
}

// Release frees the block. Later calls do nothing.
func (b *Buffer) Release() error {
	return b.owner.Release()
}

// Released reports whether the buffer was released.
func (b *Buffer) Released() bool {
	return b.owner.Released()
}

// FallbackArmed reports whether the buffer's fallback is still pending.
func (b *Buffer) FallbackArmed() bool {
	return b.owner.FallbackArmed()
}
