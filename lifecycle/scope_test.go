package lifecycle

import (
	"errors"
	"testing"

	"github.com/wippyai/disposable"
	lerrors "github.com/wippyai/disposable/errors"
)

func TestScope_ReleasesLIFO(t *testing.T) {
	rec := &recorder{}
	s := NewScope()

	s.Add(&fakeDisposable{name: "first", rec: rec})
	s.AddHandle(&fakeHandle{name: "second", rec: rec})
	s.Add(&fakeDisposable{name: "third", rec: rec})

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := []string{"release third", "free second", "release first"}
	if got := rec.list(); !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if got := rec.list(); len(got) != 3 {
		t.Fatalf("second Close released again: %v", got)
	}
}

func TestScope_Dismiss(t *testing.T) {
	h := &fakeHandle{}
	s := NewScope()
	s.AddHandle(h)
	s.Dismiss()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.frees != 0 {
		t.Fatalf("dismissed handle freed %d times", h.frees)
	}
}

func TestScope_CloseCombinesErrors(t *testing.T) {
	cause := errors.New("disk gone")
	s := NewScope()
	s.Add(&fakeDisposable{err: cause})
	s.Add(&fakeDisposable{})

	err := s.Close()
	if !errors.Is(err, cause) {
		t.Fatalf("Close = %v, want wrapped cause", err)
	}
}

func TestScope_AddAfterClose(t *testing.T) {
	s := NewScope()
	s.Close()

	d := &fakeDisposable{}
	err := s.Add(d)
	if !errors.Is(err, lerrors.ErrUsedAfterRelease) {
		t.Fatalf("Add after Close = %v, want ErrUsedAfterRelease", err)
	}
	if d.releases != 1 {
		t.Fatalf("value added to closed scope released %d times, want 1", d.releases)
	}
}

func TestScope_ConstructorPattern(t *testing.T) {
	build := func(fail bool) (*Owner, []*fakeHandle, error) {
		s := NewScope()
		defer s.Close()

		a := &fakeHandle{name: "a"}
		s.AddHandle(a)
		b := &fakeHandle{name: "b"}
		s.AddHandle(b)
		if fail {
			return nil, []*fakeHandle{a, b}, lerrors.AcquisitionFailed("Resource", "c", errors.New("no c"))
		}

		o := New(Level{Name: "Resource", Handles: []disposable.Handle{a, b}}, WithReclaimer(NewManualReclaimer()))
		s.Dismiss()
		return o, []*fakeHandle{a, b}, nil
	}

	_, handles, err := build(true)
	if !errors.Is(err, lerrors.ErrAcquisition) {
		t.Fatalf("err = %v", err)
	}
	for _, h := range handles {
		if h.frees != 1 {
			t.Errorf("failed construction leaked %s (frees=%d)", h.name, h.frees)
		}
	}

	o, handles, err := build(false)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, h := range handles {
		if h.frees != 0 {
			t.Errorf("successful construction freed %s", h.name)
		}
	}
	o.Release()
	for _, h := range handles {
		if h.frees != 1 {
			t.Errorf("%s freed %d times, want 1", h.name, h.frees)
		}
	}
}

func TestUsing(t *testing.T) {
	d := &fakeDisposable{}
	fnErr := errors.New("work failed")

	err := Using(d, func(d *fakeDisposable) error {
		return fnErr
	})
	if !errors.Is(err, fnErr) {
		t.Fatalf("Using = %v, want fn error", err)
	}
	if d.releases != 1 {
		t.Fatalf("released %d times, want 1", d.releases)
	}

	relErr := errors.New("release failed")
	d2 := &fakeDisposable{err: relErr}
	if err := Using(d2, func(*fakeDisposable) error { return nil }); !errors.Is(err, relErr) {
		t.Fatalf("Using = %v, want release error", err)
	}
}
