package loa

import "testing"

func TestWinnerNoneWhenBothSplit(t *testing.T) {
	b := boardWith([]Coord{{0, 0}, {0, 5}}, []Coord{{7, 0}, {7, 5}})
	if w := Winner(b, Black); w != NoSide {
		t.Fatalf("expected no winner, got %v", w)
	}
	if w := Winner(NewBoard(), Black); w != NoSide {
		t.Fatalf("start position has no winner, got %v", w)
	}
}

func TestWinnerSingleGroupAndSinglePiece(t *testing.T) {
	b := boardWith([]Coord{{3, 3}, {4, 4}, {5, 5}}, []Coord{{0, 0}, {7, 7}})
	if w := Winner(b, White); w != Black {
		t.Fatalf("diagonal chain should win for black, got %v", w)
	}
	b = boardWith([]Coord{{0, 0}, {7, 7}}, []Coord{{3, 3}})
	if w := Winner(b, Black); w != White {
		t.Fatalf("single piece should win for white, got %v", w)
	}
}

func TestWinnerBothConnectedFavoursMover(t *testing.T) {
	b := boardWith([]Coord{{0, 0}, {0, 1}}, []Coord{{5, 5}, {6, 6}})
	if w := Winner(b, White); w != White {
		t.Fatalf("mover should win a double connection, got %v", w)
	}
	if w := Winner(b, Black); w != Black {
		t.Fatalf("mover should win a double connection, got %v", w)
	}
}

func TestGroupCount(t *testing.T) {
	b := NewBoard()
	if got := GroupCount(b, Black); got != 2 {
		t.Fatalf("black groups = %d, want 2", got)
	}
	if got := GroupCount(b, White); got != 2 {
		t.Fatalf("white groups = %d, want 2", got)
	}
	if got := GroupCount(Board{}, Black); got != 0 {
		t.Fatalf("empty board groups = %d, want 0", got)
	}
}
