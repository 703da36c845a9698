package store

import (
	"errors"
	"testing"

	lerrors "github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/lifecycle"
)

func TestMirror_WritesBoth(t *testing.T) {
	h := newHeap(t, nil)
	m, err := NewMirror(h, 32)
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}
	defer m.Release()

	if _, err := m.Write([]byte("twice")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	a, _ := m.Primary().Bytes()
	b, _ := m.Secondary().Bytes()
	if string(a) != "twice" || string(b) != "twice" {
		t.Errorf("copies = %q, %q", a, b)
	}

	if err := m.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got, _ := m.Bytes(); len(got) != 0 {
		t.Errorf("Bytes after Reset = %q", got)
	}
}

func TestMirror_NoFallback(t *testing.T) {
	h := newHeap(t, nil)
	r := lifecycle.NewManualReclaimer()
	m, err := NewMirror(h, 8, lifecycle.WithReclaimer(r))
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}

	if m.FallbackArmed() {
		t.Error("owned-only mirror registered a fallback")
	}
	if n := r.Registered(); n != 2 {
		t.Errorf("Registered = %d, want one per buffer", n)
	}

	if err := m.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !m.Primary().Released() || !m.Secondary().Released() {
		t.Error("buffers not released with the mirror")
	}
	if len(r.Pending()) != 0 {
		t.Errorf("buffer fallbacks still pending: %v", r.Pending())
	}
	if _, err := m.Write([]byte{1}); !errors.Is(err, lerrors.ErrUsedAfterRelease) {
		t.Errorf("Write after release: got %v", err)
	}
}

func TestMirror_AcquisitionFailureLeaksNothing(t *testing.T) {
	h := newHeap(t, onePage())

	_, err := NewMirror(h, 40000)
	if !errors.Is(err, lerrors.ErrAcquisition) {
		t.Fatalf("expected acquisition failure, got %v", err)
	}
	if s := h.Stats(); s.Blocks != 0 {
		t.Errorf("primary buffer leaked: %+v", s)
	}
}
