package indexer

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func collect(t *testing.T, from, to, size uint64) []BlockRange {
	t.Helper()
	var got []BlockRange
	if err := EachBatch(from, to, size, func(r BlockRange) error {
		got = append(got, r)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return got
}

func TestEachBatch(t *testing.T) {
	got := collect(t, 100, 105, 2)
	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestEachBatchSingle(t *testing.T) {
	got := collect(t, 5, 5, 10)
	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
	if got[0].Len() != 1 {
		t.Fatalf("len mismatch: %d", got[0].Len())
	}
}

func TestEachBatchUnevenTail(t *testing.T) {
	got := collect(t, 0, 9, 4)
	want := []BlockRange{{From: 0, To: 3}, {From: 4, To: 7}, {From: 8, To: 9}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestEachBatchNoOverflow(t *testing.T) {
	got := collect(t, math.MaxUint64-2, math.MaxUint64, 2)
	want := []BlockRange{
		{From: math.MaxUint64 - 2, To: math.MaxUint64 - 1},
		{From: math.MaxUint64, To: math.MaxUint64},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestEachBatchStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := EachBatch(1, 100, 10, func(BlockRange) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestEachBatchInvalid(t *testing.T) {
	noop := func(BlockRange) error { return nil }
	if err := EachBatch(10, 9, 1, noop); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if err := EachBatch(1, 10, 0, noop); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}
