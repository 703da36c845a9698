package store

import (
	"errors"
	"path/filepath"
	"testing"

	lerrors "github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/lifecycle"
)

func TestIndexedJournal_AppendLookup(t *testing.T) {
	h := newHeap(t, nil)
	path := filepath.Join(t.TempDir(), "events.log")

	ij, err := OpenIndexedJournal(h, path, 4)
	if err != nil {
		t.Fatalf("OpenIndexedJournal failed: %v", err)
	}
	defer ij.Release()

	if ij.Name() != "store.IndexedJournal" {
		t.Errorf("Name = %q", ij.Name())
	}

	for i, rec := range []string{"a", "bb", "ccc"} {
		n, err := ij.Append([]byte(rec))
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if n != i {
			t.Errorf("record number = %d, want %d", n, i)
		}
	}

	rec, err := ij.Lookup(1)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if string(rec) != "bb" {
		t.Errorf("Lookup(1) = %q", rec)
	}
	if _, err := ij.Lookup(3); !errors.Is(err, lerrors.ErrOutOfBounds) {
		t.Errorf("Lookup past end: got %v", err)
	}
	if ij.Count() != 3 || ij.Len() != 3 {
		t.Errorf("Count/Len = %d/%d, want 3/3", ij.Count(), ij.Len())
	}
	if err := ij.Sync(); err != nil {
		t.Errorf("Sync failed: %v", err)
	}
}

func TestIndexedJournal_Full(t *testing.T) {
	h := newHeap(t, nil)
	ij, err := OpenIndexedJournal(h, filepath.Join(t.TempDir(), "j.log"), 1)
	if err != nil {
		t.Fatalf("OpenIndexedJournal failed: %v", err)
	}
	defer ij.Release()

	if _, err := ij.Append([]byte("only")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	_, err = ij.Append([]byte("more"))
	var e *lerrors.Error
	if !errors.As(err, &e) || e.Kind != lerrors.KindInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
	if ij.Len() != 1 {
		t.Errorf("rejected record reached the journal: Len = %d", ij.Len())
	}
}

func TestIndexedJournal_Reopen(t *testing.T) {
	h := newHeap(t, nil)
	path := filepath.Join(t.TempDir(), "events.log")

	ij, err := OpenIndexedJournal(h, path, 8)
	if err != nil {
		t.Fatalf("OpenIndexedJournal failed: %v", err)
	}
	_, _ = ij.Append([]byte("first"))
	_, _ = ij.Append([]byte("second"))
	_ = ij.Release()

	ij, err = OpenIndexedJournal(h, path, 8)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer ij.Release()

	if ij.Count() != 2 {
		t.Fatalf("Count = %d, want 2", ij.Count())
	}
	rec, err := ij.Lookup(1)
	if err != nil || string(rec) != "second" {
		t.Errorf("Lookup(1) = %q, %v", rec, err)
	}
}

// Released through the base *Journal: the derived level goes first.
func TestIndexedJournal_ReleaseThroughBase(t *testing.T) {
	h := newHeap(t, nil)
	log := &lifecycle.Log{}
	r := lifecycle.NewManualReclaimer()

	ij, err := OpenIndexedJournal(h, filepath.Join(t.TempDir(), "j.log"), 4,
		lifecycle.WithObserver(log), lifecycle.WithReclaimer(r))
	if err != nil {
		t.Fatalf("OpenIndexedJournal failed: %v", err)
	}
	if n := r.Registered(); n != 1 {
		t.Errorf("Registered = %d, want one fallback for the whole chain", n)
	}

	var base *Journal = ij.Journal
	if err := base.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := ij.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}

	want := []string{
		"store.IndexedJournal: handle[0] freed",
		"store.IndexedJournal: owned[0] released",
		"store.IndexedJournal: level released",
		"store.Journal: handle[0] freed",
		"store.Journal: owned[0] released",
		"store.Journal: level released",
	}
	if got := releaseLog(log); !equalStrings(got, want) {
		t.Errorf("release log = %v, want %v", got, want)
	}
	for _, l := range ij.Levels() {
		if !l.Released {
			t.Errorf("level %s not released", l.Name)
		}
	}
	if len(r.Pending()) != 0 {
		t.Errorf("fallback still pending: %v", r.Pending())
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("blocks leaked: %+v", s)
	}
	if _, err := ij.Lookup(0); !errors.Is(err, lerrors.ErrUsedAfterRelease) {
		t.Errorf("Lookup after release: got %v", err)
	}
}

func TestIndexedJournal_FallbackWalksChain(t *testing.T) {
	h := newHeap(t, nil)
	log := &lifecycle.Log{}
	r := lifecycle.NewManualReclaimer()

	ij, err := OpenIndexedJournal(h, filepath.Join(t.TempDir(), "j.log"), 4,
		lifecycle.WithObserver(log), lifecycle.WithReclaimer(r))
	if err != nil {
		t.Fatalf("OpenIndexedJournal failed: %v", err)
	}
	defer ij.indexFile.Close()
	defer ij.file.Close()

	if n := r.CollectAll(); n != 1 {
		t.Fatalf("CollectAll ran %d fallbacks, want 1", n)
	}

	want := []string{
		"store.IndexedJournal: handle[0] freed",
		"store.IndexedJournal: level released (fallback)",
		"store.Journal: handle[0] freed",
		"store.Journal: level released (fallback)",
	}
	if got := releaseLog(log); !equalStrings(got, want) {
		t.Errorf("release log = %v, want %v", got, want)
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("blocks leaked: %+v", s)
	}
}

func TestIndexedJournal_AcquisitionFailureLeaksNothing(t *testing.T) {
	h := newHeap(t, onePage())

	// The index block cannot fit next to the scratch block in one page.
	_, err := OpenIndexedJournal(h, filepath.Join(t.TempDir(), "j.log"), 20000)
	if !errors.Is(err, lerrors.ErrAcquisition) {
		t.Fatalf("expected acquisition failure, got %v", err)
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("blocks leaked: %+v", s)
	}
}
