// Package lifecycle implements deterministic and fallback release for
// values that own resources.
//
// # Owners
//
// An Owner is built from levels. A type holding resources creates its
// owner with New and its own Level; a type extending it calls Extend with
// the resources it adds:
//
//	type Journal struct {
//	    *lifecycle.Owner
//	    scratch *heap.Block
//	    file    *os.File
//	}
//
//	j.Owner = lifecycle.New(lifecycle.Level{
//	    Name:    "store.Journal",
//	    Handles: []disposable.Handle{scratch},
//	    Owned:   []disposable.Disposable{disposable.FromCloser(file)},
//	})
//
//	// in the derived constructor
//	err := ij.Extend(lifecycle.Level{Name: "store.IndexedJournal", ...})
//
// Release walks the levels from the most derived to the base. A level
// frees its raw handles and releases its owned disposables before its
// parent starts. Release through any embedded
// reference releases the whole owner.
//
// # Fallback
//
// If any level holds raw handles, one fallback is registered with the
// owner's Reclaimer. RuntimeReclaimer uses runtime.AddCleanup; the fallback
// frees raw handles only, never owned disposables, which may already have
// been collected. Release stops the fallback first, so a handle is freed at
// most once. Owners that hold only owned disposables register nothing.
//
// Fallback errors and panics are logged and swallowed.
//
// # Scopes
//
// Scope and Using give callers a release on every exit path and give
// constructors all-or-nothing acquisition.
package lifecycle
