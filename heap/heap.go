package heap

import (
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/heap/internal/wasmbin"
	"github.com/wippyai/disposable/lifecycle"
	"github.com/wippyai/disposable/resource"
)

const (
	heapName     = "heap.Heap"
	blockName    = "heap.Block"
	memoryExport = "memory"

	// PageSize is the growth unit of linear memory.
	PageSize = wasmbin.PageSize
)

// Config holds configuration for heap creation
type Config struct {
	// InitialPages is the memory size at creation, in 64KiB pages.
	// 0 means 1 page.
	InitialPages uint32

	// MaxPages bounds memory growth, in 64KiB pages.
	// 0 means 256 pages (16MB). At most 65535.
	MaxPages uint32

	// Align is the allocation granularity in bytes, a power of two.
	// 0 means 8.
	Align uint32
}

func (c *Config) withDefaults() Config {
	out := Config{InitialPages: 1, MaxPages: 256, Align: 8}
	if c == nil {
		return out
	}
	if c.InitialPages > 0 {
		out.InitialPages = c.InitialPages
	}
	if c.MaxPages > 0 {
		out.MaxPages = c.MaxPages
	}
	if c.Align > 0 {
		out.Align = c.Align
	}
	return out
}

func (c Config) validate() error {
	if c.MaxPages > math.MaxUint16 {
		return errors.InvalidInput(errors.PhaseAcquire, "MaxPages must not exceed 65535")
	}
	if c.InitialPages > c.MaxPages {
		return errors.InvalidInput(errors.PhaseAcquire, "InitialPages exceeds MaxPages")
	}
	if c.Align&(c.Align-1) != 0 {
		return errors.InvalidInput(errors.PhaseAcquire, "Align must be a power of two")
	}
	return nil
}

type span struct {
	off  uint32
	size uint32
}

func (s span) end() uint32 {
	return s.off + s.size
}

// Stats reports heap usage.
type Stats struct {
	Blocks    int
	InUse     uint32
	FreeSpans int
	HighWater uint32
	Pages     uint32
}

// Heap allocates raw blocks from one linear memory. The heap owns its
// wazero runtime as an owned disposable and holds no raw handles itself,
// so it registers no fallback.
type Heap struct {
	*lifecycle.Owner
	runtime  wazero.Runtime
	mem      api.Memory
	blocks   *resource.Table[span]
	spans    []span // free, sorted by offset, never adjacent
	top      uint32
	inUse    uint32
	align    uint32
	maxPages uint32
	mu       sync.Mutex
	closed   bool
}

// New creates a heap backed by a fresh wazero runtime.
func New(ctx context.Context, cfg *Config, opts ...lifecycle.Option) (*Heap, error) {
	c := cfg.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	s := lifecycle.NewScope()
	defer s.Close()

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(c.MaxPages))
	closeRuntime := disposable.FromContextCloser(context.Background(), rt)
	_ = s.Add(closeRuntime)

	mod, err := rt.Instantiate(ctx, wasmbin.MemoryModule(memoryExport, c.InitialPages, &c.MaxPages))
	if err != nil {
		return nil, errors.AcquisitionFailed(heapName, "linear memory", err)
	}
	mem := mod.ExportedMemory(memoryExport)
	if mem == nil {
		return nil, errors.New(errors.PhaseAcquire, errors.KindAcquisition).
			Type(heapName).
			Detail("module exports no %q memory", memoryExport).
			Build()
	}

	h := &Heap{
		runtime:  rt,
		mem:      mem,
		blocks:   resource.NewTable[span](),
		top:      c.Align,
		align:    c.Align,
		maxPages: c.MaxPages,
	}
	h.Owner = lifecycle.New(lifecycle.Level{
		Name: heapName,
		Owned: []disposable.Disposable{
			disposable.NewFunc(h.shutdown),
			closeRuntime,
		},
	}, opts...)

	s.Dismiss()
	return h, nil
}

// shutdown kills outstanding blocks before the runtime closes.
func (h *Heap) shutdown() error {
	h.mu.Lock()
	h.closed = true
	h.spans = nil
	h.mu.Unlock()

	if n := h.blocks.Close(); n > 0 {
		Logger().Debug("heap released with live blocks", zap.Int("blocks", n))
	}
	return nil
}

func alignUp(size, align uint32) (uint32, bool) {
	if size > math.MaxUint32-(align-1) {
		return 0, false
	}
	return (size + align - 1) &^ (align - 1), true
}

// Alloc returns a new block of at least size bytes. Offset 0 is never
// handed out. Memory grows by whole pages up to Config.MaxPages.
func (h *Heap) Alloc(size uint32) (*Block, error) {
	if err := h.Guard(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, errors.InvalidInput(errors.PhaseMemory, "allocation size must be positive")
	}
	n, ok := alignUp(size, h.align)
	if !ok {
		return nil, errors.AllocationFailed(errors.PhaseMemory, size, h.align, nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.UsedAfterRelease(heapName)
	}

	off, ok := h.takeFree(n)
	if !ok {
		var err error
		if off, err = h.extend(n); err != nil {
			return nil, errors.AllocationFailed(errors.PhaseMemory, size, h.align, err)
		}
	}

	handle, err := h.blocks.Insert(span{off: off, size: n})
	if err != nil {
		h.putFree(span{off: off, size: n})
		return nil, errors.AllocationFailed(errors.PhaseMemory, size, h.align, err)
	}
	h.inUse += n

	return &Block{heap: h, handle: handle, off: off, size: size}, nil
}

// takeFree carves n bytes from the first free span large enough.
func (h *Heap) takeFree(n uint32) (uint32, bool) {
	for i, s := range h.spans {
		if s.size < n {
			continue
		}
		if s.size == n {
			h.spans = append(h.spans[:i], h.spans[i+1:]...)
		} else {
			h.spans[i] = span{off: s.off + n, size: s.size - n}
		}
		return s.off, true
	}
	return 0, false
}

// extend takes n bytes above the high-water mark, growing memory if needed.
func (h *Heap) extend(n uint32) (uint32, error) {
	end := uint64(h.top) + uint64(n)
	size := uint64(h.mem.Size())

	if end > size {
		pages := uint32((end - size + PageSize - 1) / PageSize)
		current := uint32(size / PageSize)
		if uint64(current)+uint64(pages) > uint64(h.maxPages) {
			return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
				Detail("need %d more pages, limit is %d", pages, h.maxPages).
				Build()
		}
		if _, ok := h.mem.Grow(pages); !ok {
			return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
				Detail("grow memory by %d pages", pages).
				Build()
		}
		Logger().Debug("heap grew",
			zap.Uint32("pages", pages),
			zap.Uint32("total_pages", current+pages))
	}

	off := h.top
	h.top = uint32(end)
	return off, nil
}

// putFree returns a span to the free list, merging neighbours and
// lowering the high-water mark when the span touches it.
func (h *Heap) putFree(s span) {
	i := 0
	for i < len(h.spans) && h.spans[i].off < s.off {
		i++
	}

	if i > 0 && h.spans[i-1].end() == s.off {
		i--
		s = span{off: h.spans[i].off, size: h.spans[i].size + s.size}
		h.spans = append(h.spans[:i], h.spans[i+1:]...)
	}
	if i < len(h.spans) && s.end() == h.spans[i].off {
		s.size += h.spans[i].size
		h.spans = append(h.spans[:i], h.spans[i+1:]...)
	}

	if s.end() == h.top {
		h.top = s.off
		return
	}

	h.spans = append(h.spans, span{})
	copy(h.spans[i+1:], h.spans[i:])
	h.spans[i] = s
}

func (h *Heap) free(b *Block) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	s, ok := h.blocks.Remove(b.handle)
	if !ok {
		Logger().Warn("block freed twice", zap.Stringer("handle", b.handle), zap.Uint32("offset", b.off))
		return errors.DoubleRelease(errors.PhaseMemory, blockName, b.handle)
	}

	// Reused blocks start zeroed.
	h.mem.Write(s.off, make([]byte, s.size))
	h.inUse -= s.size
	h.putFree(s)
	return nil
}

// Stats returns a snapshot of heap usage. A released heap reports zeros.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return Stats{}
	}
	return Stats{
		Blocks:    h.blocks.Len(),
		InUse:     h.inUse,
		FreeSpans: len(h.spans),
		HighWater: h.top,
		Pages:     h.mem.Size() / PageSize,
	}
}
