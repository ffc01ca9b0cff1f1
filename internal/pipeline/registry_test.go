package pipeline

import (
	"testing"
	"time"
)

func TestRegistryReusesSessionPerKey(t *testing.T) {
	r := NewRegistry(&mockStats{}, &mockStreams{}, time.Hour, nil)
	t.Cleanup(r.Close)

	a := r.Session("2/mid/cid")
	b := r.Session("2/mid/cid")
	if a != b {
		t.Error("same key must yield the same session")
	}
	if c := r.Session("2/mid/other"); c == a {
		t.Error("distinct keys must yield distinct sessions")
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestRegistrySweepDropsIdleSessions(t *testing.T) {
	r := NewRegistry(&mockStats{}, &mockStreams{}, time.Minute, nil)
	t.Cleanup(r.Close)

	old := r.Session("stale")
	// Touch a second session well after the first one went idle.
	r.mu.Lock()
	r.sessions["stale"].lastSeen = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()
	fresh := r.Session("fresh")

	r.sweep(time.Now())

	if got := r.Len(); got != 1 {
		t.Fatalf("Len() after sweep = %d, want 1", got)
	}
	if r.Session("fresh") != fresh {
		t.Error("fresh session must survive the sweep")
	}
	if r.Session("stale") == old {
		t.Error("stale session must have been torn down")
	}
}

func TestRegistryCloseStopsSweepLoop(t *testing.T) {
	r := NewRegistry(&mockStats{}, &mockStreams{}, time.Minute, nil)

	r.Close()
	r.Close() // idempotent

	select {
	case <-r.done:
	default:
		t.Fatal("Close must signal the sweep loop")
	}
	if r.Session("k") == nil {
		t.Error("a closed registry still hands out sessions")
	}
}
