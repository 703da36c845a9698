package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

func newHeap(t *testing.T, cfg *heap.Config) *heap.Heap {
	t.Helper()
	h, err := heap.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("heap.New failed: %v", err)
	}
	t.Cleanup(func() { _ = h.Release() })
	return h
}

// releaseLog renders the release steps recorded in log.
func releaseLog(log *lifecycle.Log) []string {
	events := log.Filter(lifecycle.EventHandleFreed, lifecycle.EventOwnedReleased, lifecycle.EventLevelReleased)
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func onePage() *heap.Config {
	return &heap.Config{InitialPages: 1, MaxPages: 1}
}
