package loa

import "testing"

func TestNewBoardStartingPosition(t *testing.T) {
	b := NewBoard()
	if got := b.Count(Black); got != 12 {
		t.Fatalf("black pieces = %d, want 12", got)
	}
	if got := b.Count(White); got != 12 {
		t.Fatalf("white pieces = %d, want 12", got)
	}
	for i := 1; i < Size-1; i++ {
		for _, c := range []Coord{{0, i}, {Size - 1, i}} {
			if b.At(c) != Black {
				t.Fatalf("%s should be black", c)
			}
		}
		for _, c := range []Coord{{i, 0}, {i, Size - 1}} {
			if b.At(c) != White {
				t.Fatalf("%s should be white", c)
			}
		}
	}
	for _, c := range []Coord{{0, 0}, {0, 7}, {7, 0}, {7, 7}} {
		if b.At(c) != NoSide {
			t.Fatalf("corner %s should be empty", c)
		}
	}
	for r := 1; r < Size-1; r++ {
		for c := 1; c < Size-1; c++ {
			if b.At(Coord{r, c}) != NoSide {
				t.Fatalf("centre cell (%d,%d) should be empty", r, c)
			}
		}
	}
}

func TestBoardApplyLeavesSourceUntouched(t *testing.T) {
	b := NewBoard()
	next, capture := b.Apply(Move{From: Coord{0, 1}, To: Coord{2, 1}})
	if capture {
		t.Fatalf("unexpected capture")
	}
	if b.At(Coord{0, 1}) != Black || b.At(Coord{2, 1}) != NoSide {
		t.Fatalf("original board mutated")
	}
	if next.At(Coord{0, 1}) != NoSide || next.At(Coord{2, 1}) != Black {
		t.Fatalf("move not applied on copy")
	}
}

func TestBoardAtPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range read")
		}
	}()
	NewBoard().At(Coord{8, 0})
}

func TestCoordNotation(t *testing.T) {
	cases := map[Coord]string{
		{0, 0}: "A8",
		{7, 7}: "H1",
		{0, 2}: "C8",
		{5, 3}: "D3",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Fatalf("%v.String() = %q, want %q", c, got, want)
		}
		back, err := ParseCoord(want)
		if err != nil || back != c {
			t.Fatalf("ParseCoord(%q) = %v, %v", want, back, err)
		}
	}
	if _, err := ParseCoord("I9"); err == nil {
		t.Fatalf("expected error for I9")
	}
}

func TestParseMoveForms(t *testing.T) {
	want := Move{From: Coord{0, 0}, To: Coord{0, 2}}
	for _, raw := range []string{"A8:C8", "a8c8", "A8-C8", " a8 c8 "} {
		m, err := ParseMove(raw)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", raw, err)
		}
		if m != want {
			t.Fatalf("ParseMove(%q) = %v", raw, m)
		}
	}
	if want.String() != "A8:C8" {
		t.Fatalf("Move.String() = %q", want.String())
	}
	if _, err := ParseMove("A8:C"); err == nil {
		t.Fatalf("expected error for truncated move")
	}
}
