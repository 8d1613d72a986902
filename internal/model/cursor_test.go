package model

import "testing"

func TestCursorCovers(t *testing.T) {
	whole := BlockCursor(20)
	if !whole.Covers(20, 999) || !whole.Covers(19, 0) || whole.Covers(21, 0) {
		t.Fatalf("whole-block cursor mismatch")
	}

	partial := LogCursor(20, 3)
	if !partial.Covers(20, 3) || !partial.Covers(19, 50) {
		t.Fatalf("partial cursor should cover earlier logs")
	}
	if partial.Covers(20, 4) || partial.Covers(21, 0) {
		t.Fatalf("partial cursor should not cover later logs")
	}
}

func TestCursorBefore(t *testing.T) {
	cases := []struct {
		a, b Cursor
		want bool
	}{
		{LogCursor(20, 3), LogCursor(20, 4), true},
		{LogCursor(20, 4), LogCursor(20, 3), false},
		{LogCursor(20, 9), BlockCursor(20), true},
		{BlockCursor(20), LogCursor(20, 9), false},
		{BlockCursor(19), LogCursor(20, 0), true},
		{BlockCursor(20), BlockCursor(20), false},
	}
	for i, tc := range cases {
		if got := tc.a.Before(tc.b); got != tc.want {
			t.Fatalf("case %d: before=%v want %v", i, got, tc.want)
		}
	}
}
