// Package heap hands out raw memory blocks carved from a WebAssembly
// linear memory hosted by wazero.
//
// A Block is a raw resource handle in the sense of package disposable: it
// must be freed exactly once. The heap detects double frees and stale
// blocks, but does not free anything on its own; owners in package store
// hold blocks and free them on release.
//
//	h, err := heap.New(ctx, &heap.Config{MaxPages: 16})
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	b, err := h.Alloc(256)
//	if err != nil {
//	    return err
//	}
//	defer b.Free()
//
//	b.Write(0, []byte("payload"))
//
// # Memory Model
//
// Linear memory can only grow, never shrink. Freed blocks return to a
// coalescing free list; a freed block at the top of the used region lowers
// the high-water mark so later allocations reuse it.
//
// The heap owns its wazero runtime. Releasing the heap closes the runtime;
// blocks still outstanding become dead, and freeing them is a no-op.
//
// Block operations are safe for concurrent use, since fallbacks of
// abandoned owners free blocks from the runtime's cleanup goroutine. The
// heap itself follows the single-goroutine rule of every owner.
package heap
