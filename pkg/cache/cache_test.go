package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New(1024)
	if err := c.Set("a", []byte("hello"), 5, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestEmptyValueIsNotAMiss(t *testing.T) {
	c := New(64)
	if err := c.Set("empty", nil, 0, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("empty"); !ok {
		t.Fatal("stored empty value must be distinguishable from not-found")
	}
}

func TestBudgetNeverExceeded(t *testing.T) {
	const budget = 100
	c := New(budget)

	for i := 0; i < 50; i++ {
		size := int64(7 + i%13)
		if err := c.Set(fmt.Sprintf("k%d", i), make([]byte, size), size, 0); err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
		if used := c.UsedBytes(); used > budget {
			t.Fatalf("budget exceeded after write %d: %d > %d", i, used, budget)
		}
	}
}

func TestEvictionIsOldestFirst(t *testing.T) {
	c := New(30)
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(k, []byte(k), 10, 0); err != nil {
			t.Fatalf("Set %q failed: %v", k, err)
		}
	}

	// Fits only after evicting the two oldest entries.
	if err := c.Set("d", []byte("d"), 20, 0); err != nil {
		t.Fatalf("Set d failed: %v", err)
	}

	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry a should have been evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("entry b should have been evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("entry c should have survived")
	}
	if _, ok := c.Get("d"); !ok {
		t.Fatal("entry d should be present")
	}
}

func TestOversizedEntryRejected(t *testing.T) {
	c := New(10)
	if err := c.Set("filler", []byte("x"), 8, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := c.Set("huge", make([]byte, 11), 11, 0)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// The rejected write must not have evicted anything.
	if _, ok := c.Get("filler"); !ok {
		t.Fatal("rejected oversized write must leave existing entries intact")
	}
}

func TestExpiredEntryIsAbsentOnRead(t *testing.T) {
	c := New(64)
	if err := c.Set("ttl", []byte("v"), 1, time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("ttl"); ok {
		t.Fatal("expired entry must read as absent")
	}
}

func TestExpiredEntriesPurgedOnWrite(t *testing.T) {
	c := New(64)
	if err := c.Set("ttl", []byte("v"), 32, time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	if err := c.Set("fresh", []byte("v"), 1, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if n := c.Len(); n != 1 {
		t.Fatalf("expected expired entry purged on write, have %d entries", n)
	}
	if used := c.UsedBytes(); used != 1 {
		t.Fatalf("expected 1 used byte after purge, have %d", used)
	}
}

func TestReplaceExistingKey(t *testing.T) {
	c := New(20)
	if err := c.Set("k", []byte("old"), 10, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("k", []byte("new"), 15, 0); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	got, ok := c.Get("k")
	if !ok || string(got) != "new" {
		t.Fatalf("got %q ok=%v, want new", got, ok)
	}
	if used := c.UsedBytes(); used != 15 {
		t.Fatalf("expected 15 used bytes after replace, have %d", used)
	}
}
