package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	var ranges [][2]int
	err := ChunkRange(10, 4, func(start, end int) error {
		ranges = append(ranges, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 4}, {4, 8}, {8, 10}}
	if !reflect.DeepEqual(ranges, want) {
		t.Errorf("ranges = %v, want %v", ranges, want)
	}
}

func TestChunkRangeEmptyAndErrors(t *testing.T) {
	if err := ChunkRange(0, 4, func(int, int) error {
		t.Error("fn called for empty range")
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	calls := 0
	err := ChunkRange(10, 4, func(int, int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times after error, want 1", calls)
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"a", "", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if DedupeStrings(nil) != nil {
		t.Error("expected nil for empty input")
	}
}
