package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(true)

	etag := c.Set("k", []byte("payload"), time.Minute)
	if etag == "" {
		t.Fatal("Set must return an etag")
	}

	data, gotETag, ok := c.Get("k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(data) != "payload" || gotETag != etag {
		t.Errorf("got %q / %q", data, gotETag)
	}

	if _, _, ok := c.Get("missing"); ok {
		t.Error("unknown key must miss")
	}
}

func TestExpiry(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("payload"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, _, ok := c.Get("k"); ok {
		t.Error("expired entry must miss")
	}

	c.evict()
	stats := c.Stats()
	if stats["total_keys"].(int) != 0 {
		t.Errorf("evict left %v keys", stats["total_keys"])
	}
}

func TestDelete(t *testing.T) {
	c := New(true)
	c.Set("k", []byte("payload"), time.Minute)

	c.Delete("k")
	if _, _, ok := c.Get("k"); ok {
		t.Error("deleted entry must miss")
	}

	// Deleting an absent key is harmless.
	c.Delete("missing")
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c := New(false)

	if etag := c.Set("k", []byte("payload"), time.Minute); etag == "" {
		t.Error("disabled cache still computes etags")
	}
	if _, _, ok := c.Get("k"); ok {
		t.Error("disabled cache must never hit")
	}
}

func TestStats(t *testing.T) {
	c := New(true)
	c.Set("live", []byte("a"), time.Minute)
	c.Set("dead", []byte("b"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	stats := c.Stats()
	if stats["enabled"] != true {
		t.Error("enabled flag missing")
	}
	if stats["total_keys"].(int) != 2 || stats["active_keys"].(int) != 1 || stats["expired_keys"].(int) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestComputeETagStable(t *testing.T) {
	a := ComputeETag([]byte("payload"))
	b := ComputeETag([]byte("payload"))
	if a != b {
		t.Error("same data must hash to the same etag")
	}
	if a == ComputeETag([]byte("other")) {
		t.Error("different data must not collide")
	}
	if a[:3] != `W/"` {
		t.Errorf("etag %q is not weak-form", a)
	}
}

func TestCheckETagMatch(t *testing.T) {
	cases := []struct {
		ifNoneMatch string
		etag        string
		want        bool
	}{
		{"", `W/"abc"`, false},
		{"*", `W/"abc"`, true},
		{`W/"abc"`, `W/"abc"`, true},
		{`W/"abc"`, `W/"def"`, false},
	}
	for _, tc := range cases {
		if got := CheckETagMatch(tc.ifNoneMatch, tc.etag); got != tc.want {
			t.Errorf("CheckETagMatch(%q, %q) = %v, want %v", tc.ifNoneMatch, tc.etag, got, tc.want)
		}
	}
}
