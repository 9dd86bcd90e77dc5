package sqlite

import (
	"context"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || val != "value" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestStoreSetBatch(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := map[string]string{
		"grid:ladder_snapshot": "{}",
		"grid:order_attempts":  "deadbeef",
	}
	if err := store.SetBatch(ctx, entries); err != nil {
		t.Fatalf("batch set failed: %v", err)
	}
	for key, want := range entries {
		got, ok, err := store.Get(ctx, key)
		if err != nil || !ok || got != want {
			t.Fatalf("key %s: got %q ok=%v err=%v", key, got, ok, err)
		}
	}
	// Batch overwrites existing values.
	if err := store.SetBatch(ctx, map[string]string{"grid:ladder_snapshot": "{\"v\":2}"}); err != nil {
		t.Fatalf("batch overwrite failed: %v", err)
	}
	got, _, _ := store.Get(ctx, "grid:ladder_snapshot")
	if got != "{\"v\":2}" {
		t.Fatalf("overwrite lost: %q", got)
	}
}
