// Package disposable provides deterministic and fallback release of
// resources that the Go garbage collector does not manage.
//
// An owner holds two kinds of resources:
//
//   - raw handles (Handle): memory blocks, descriptors, anything that must be
//     freed exactly once and leaks silently otherwise
//   - owned disposables (Disposable): values with their own Release, such as
//     a wrapped *os.File or another owner
//
// # Architecture Overview
//
//	disposable/        Root package with the Disposable and Handle interfaces
//	├── lifecycle/     Owner, release chains, fallback reclaimers, scopes
//	├── heap/          Raw memory blocks carved from wazero linear memory
//	├── resource/      Integer handle table with free-list reuse
//	├── store/         Concrete owners: Buffer, Journal, IndexedJournal, Mirror
//	├── errors/        Structured error types
//	└── cmd/lifecycle  Scenario runner and interactive explorer
//
// # Quick Start
//
//	h, err := heap.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
//	buf, err := store.NewBuffer(h, 128)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer buf.Release()
//
//	buf.Write([]byte("hello"))
//
// # Release Semantics
//
// Release is idempotent. The first call frees every raw handle, then
// releases every owned disposable, level by level from the most derived to
// the base. Any other method called after Release fails with
// errors.ErrUsedAfterRelease.
//
// If an owner holding raw handles becomes unreachable without Release, a
// cleanup registered with runtime.AddCleanup frees the raw handles. Owned
// disposables are never touched on that path; they are responsible for
// their own fallback.
//
// # Thread Safety
//
// Owners are NOT safe for concurrent use. Release must not be called
// concurrently on the same owner without external synchronization. Heap
// block operations are safe for concurrent use since fallbacks run on the
// runtime's cleanup goroutine.
package disposable
