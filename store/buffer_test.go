package store

import (
	"errors"
	"testing"

	lerrors "github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/lifecycle"
)

func TestBuffer_WriteBytesReset(t *testing.T) {
	h := newHeap(t, nil)
	b, err := NewBuffer(h, 16)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	defer b.Release()

	if _, err := b.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := b.Write([]byte("world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("Bytes = %q", got)
	}
	if b.Len() != 11 || b.Cap() != 16 {
		t.Errorf("Len/Cap = %d/%d, want 11/16", b.Len(), b.Cap())
	}

	if _, err := b.Write([]byte("overflow")); !errors.Is(err, lerrors.ErrOutOfBounds) {
		t.Errorf("expected out of bounds, got %v", err)
	}
	if b.Len() != 11 {
		t.Errorf("failed write changed Len to %d", b.Len())
	}

	if err := b.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got, _ := b.Bytes(); len(got) != 0 {
		t.Errorf("Bytes after Reset = %q", got)
	}
}

func TestBuffer_UsedAfterRelease(t *testing.T) {
	h := newHeap(t, nil)
	b, err := NewBuffer(h, 8)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := b.Release(); err != nil {
			t.Fatalf("Release #%d failed: %v", i+1, err)
		}
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("block not freed: %+v", s)
	}

	ops := map[string]func() error{
		"Write": func() error { _, err := b.Write([]byte{1}); return err },
		"Bytes": func() error { _, err := b.Bytes(); return err },
		"Reset": b.Reset,
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, lerrors.ErrUsedAfterRelease) {
			t.Errorf("%s after release: got %v", name, err)
		}
	}
	if b.Len() != 0 || b.Cap() != 0 {
		t.Errorf("Len/Cap after release = %d/%d", b.Len(), b.Cap())
	}
}

func TestBuffer_Fallback(t *testing.T) {
	h := newHeap(t, nil)
	r := lifecycle.NewManualReclaimer()
	b, err := NewBuffer(h, 8, lifecycle.WithReclaimer(r))
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	if !r.Collect(b.owner) {
		t.Fatal("buffer registered no fallback")
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("fallback did not free the block: %+v", s)
	}
	if err := b.Release(); err != nil {
		t.Errorf("Release after fallback: %v", err)
	}
}

func TestBuffer_AcquisitionFailure(t *testing.T) {
	h := newHeap(t, onePage())
	_, err := NewBuffer(h, 2*65536)
	if !errors.Is(err, lerrors.ErrAcquisition) {
		t.Fatalf("expected acquisition failure, got %v", err)
	}
	if !errors.Is(err, lerrors.ErrAllocation) {
		t.Errorf("cause lost: %v", err)
	}
}
