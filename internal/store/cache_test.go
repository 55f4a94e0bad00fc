package store

import (
	"encoding/json"
	"fmt"
	"testing"

	"ta-go/internal/ta"
)

func cacheRecord(id string) ta.Record {
	return ta.Record{ID: id, UpdatedAt: 1, Body: json.RawMessage(`{}`)}
}

func TestRecencyCache_PutGet(t *testing.T) {
	t.Parallel()

	c := newRecencyCache(4)

	if _, ok := c.get("t1"); ok {
		t.Error("get() on empty cache = hit, want miss")
	}

	c.put(cacheRecord("t1"))
	rec, ok := c.get("t1")
	if !ok {
		t.Fatal("get() = miss after put, want hit")
	}
	if rec.ID != "t1" {
		t.Errorf("get() = %q, want t1", rec.ID)
	}
}

func TestRecencyCache_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	c := newRecencyCache(3)
	for i := 1; i <= 4; i++ {
		c.put(cacheRecord(fmt.Sprintf("t%d", i)))
	}

	if c.len() != 3 {
		t.Fatalf("len() = %d, want 3", c.len())
	}
	if _, ok := c.get("t1"); ok {
		t.Error("oldest entry still cached, want evicted")
	}
	for i := 2; i <= 4; i++ {
		if _, ok := c.get(fmt.Sprintf("t%d", i)); !ok {
			t.Errorf("t%d missing, want cached", i)
		}
	}
}

func TestRecencyCache_UpdateDoesNotEvict(t *testing.T) {
	t.Parallel()

	c := newRecencyCache(2)
	c.put(cacheRecord("t1"))
	c.put(cacheRecord("t2"))

	// Overwriting an existing id must not count as a new insertion.
	updated := cacheRecord("t1")
	updated.UpdatedAt = 99
	c.put(updated)

	if c.len() != 2 {
		t.Errorf("len() = %d, want 2", c.len())
	}
	rec, ok := c.get("t1")
	if !ok || rec.UpdatedAt != 99 {
		t.Errorf("get(t1) = (%+v, %v), want updated record", rec, ok)
	}
	if _, ok := c.get("t2"); !ok {
		t.Error("t2 evicted by an overwrite, want retained")
	}
}

func TestRecencyCache_Remove(t *testing.T) {
	t.Parallel()

	c := newRecencyCache(2)
	c.put(cacheRecord("t1"))
	c.remove("t1")
	c.remove("ghost") // no-op

	if _, ok := c.get("t1"); ok {
		t.Error("get() = hit after remove, want miss")
	}
	if c.len() != 0 {
		t.Errorf("len() = %d, want 0", c.len())
	}
}

func TestRecencyCache_Reset(t *testing.T) {
	t.Parallel()

	c := newRecencyCache(2)
	c.put(cacheRecord("t1"))
	c.put(cacheRecord("t2"))
	c.reset()

	if c.len() != 0 {
		t.Errorf("len() = %d after reset, want 0", c.len())
	}

	// The cache keeps working after a reset.
	c.put(cacheRecord("t3"))
	if _, ok := c.get("t3"); !ok {
		t.Error("get() = miss after post-reset put, want hit")
	}
}
