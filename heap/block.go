package heap

import (
	"math"

	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/resource"
)

// Block is a raw handle to a range of heap memory. Free returns the range
// to the heap; freeing twice reports a double release. A block outliving
// its heap frees as a no-op.
type Block struct {
	heap   *Heap
	handle resource.Handle
	off    uint32
	size   uint32
}

// Offset returns the block's offset in linear memory.
func (b *Block) Offset() uint32 {
	return b.off
}

// Size returns the requested size in bytes.
func (b *Block) Size() uint32 {
	return b.size
}

// Handle returns the block's table handle.
func (b *Block) Handle() resource.Handle {
	return b.handle
}

// Free returns the block to its heap.
func (b *Block) Free() error {
	return b.heap.free(b)
}

// Live reports whether the block can still be accessed.
func (b *Block) Live() bool {
	b.heap.mu.Lock()
	defer b.heap.mu.Unlock()
	return b.checkLocked() == nil
}

func (b *Block) checkLocked() error {
	if b.heap.closed {
		return errors.UsedAfterRelease(heapName)
	}
	if _, ok := b.heap.blocks.Get(b.handle); !ok {
		return errors.UsedAfterRelease(blockName)
	}
	return nil
}

func (b *Block) checkRange(off uint32, n uint64) error {
	if uint64(off)+n > uint64(b.size) {
		length := uint32(math.MaxUint32)
		if n < math.MaxUint32 {
			length = uint32(n)
		}
		return errors.OutOfBounds(errors.PhaseMemory, off, length, b.size)
	}
	return nil
}

// Write copies data into the block at off.
func (b *Block) Write(off uint32, data []byte) error {
	b.heap.mu.Lock()
	defer b.heap.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return err
	}
	if err := b.checkRange(off, uint64(len(data))); err != nil {
		return err
	}
	if !b.heap.mem.Write(b.off+off, data) {
		return errors.OutOfBounds(errors.PhaseMemory, b.off+off, uint32(len(data)), b.heap.mem.Size())
	}
	return nil
}

// Read returns a copy of n bytes starting at off.
func (b *Block) Read(off, n uint32) ([]byte, error) {
	b.heap.mu.Lock()
	defer b.heap.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return nil, err
	}
	if err := b.checkRange(off, uint64(n)); err != nil {
		return nil, err
	}
	view, ok := b.heap.mem.Read(b.off+off, n)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseMemory, b.off+off, n, b.heap.mem.Size())
	}
	out := make([]byte, n)
	copy(out, view)
	return out, nil
}

// WriteUint32 stores v little-endian at off.
func (b *Block) WriteUint32(off, v uint32) error {
	b.heap.mu.Lock()
	defer b.heap.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return err
	}
	if err := b.checkRange(off, 4); err != nil {
		return err
	}
	if !b.heap.mem.WriteUint32Le(b.off+off, v) {
		return errors.OutOfBounds(errors.PhaseMemory, b.off+off, 4, b.heap.mem.Size())
	}
	return nil
}

// ReadUint32 loads a little-endian uint32 at off.
func (b *Block) ReadUint32(off uint32) (uint32, error) {
	b.heap.mu.Lock()
	defer b.heap.mu.Unlock()

	if err := b.checkLocked(); err != nil {
		return 0, err
	}
	if err := b.checkRange(off, 4); err != nil {
		return 0, err
	}
	v, ok := b.heap.mem.ReadUint32Le(b.off + off)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseMemory, b.off+off, 4, b.heap.mem.Size())
	}
	return v, nil
}
