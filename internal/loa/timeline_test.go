package loa

import (
	"errors"
	"testing"
)

func mustPlay(t *testing.T, tl *Timeline, raw string) MoveResult {
	t.Helper()
	m, err := ParseMove(raw)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", raw, err)
	}
	res, err := tl.AttemptMove(m.From, m.To)
	if err != nil {
		t.Fatalf("AttemptMove(%q): %v", raw, err)
	}
	if !res.Accepted() {
		t.Fatalf("AttemptMove(%q) status=%v reason=%v", raw, res.Status, res.Reason)
	}
	return res
}

func TestTimelineTurnOrder(t *testing.T) {
	tl := NewTimeline()
	if tl.CurrentPlayer() != Black {
		t.Fatalf("black moves first")
	}
	mustPlay(t, tl, "B8:B6")
	if tl.CurrentPlayer() != White {
		t.Fatalf("white moves second")
	}
	// Black cannot move twice in a row.
	res, err := tl.AttemptMove(Coord{0, 3}, Coord{2, 3})
	if err != nil {
		t.Fatalf("AttemptMove: %v", err)
	}
	if res.Status != MoveIllegal || !errors.Is(res.Reason, ErrNotYourPiece) {
		t.Fatalf("expected not-your-piece rejection, got %v %v", res.Status, res.Reason)
	}
}

func TestTimelineBranchTruncation(t *testing.T) {
	tl := NewTimeline()
	mustPlay(t, tl, "B8:B6")
	mustPlay(t, tl, "A7:C7")
	mustPlay(t, tl, "D8:D6")
	if _, ok := tl.Undo(); !ok {
		t.Fatalf("first undo failed")
	}
	if _, ok := tl.Undo(); !ok {
		t.Fatalf("second undo failed")
	}
	if tl.Pointer() != 1 || !tl.CanRedo() {
		t.Fatalf("pointer=%d canRedo=%v", tl.Pointer(), tl.CanRedo())
	}

	mustPlay(t, tl, "H7:F7")
	if tl.CanRedo() {
		t.Fatalf("redo must be unavailable after a new move")
	}
	if _, ok := tl.Redo(); ok {
		t.Fatalf("redo should be a no-op")
	}
	if tl.Len() != 3 {
		t.Fatalf("snapshots = %d, want 3", tl.Len())
	}
	if got := tl.Notation(); len(got) != 2 || got[0] != "B8:B6" || got[1] != "H7:F7" {
		t.Fatalf("history = %v", got)
	}
}

func TestTimelineNavigationKeepsHistory(t *testing.T) {
	tl := NewTimeline()
	mustPlay(t, tl, "B8:B6")
	mustPlay(t, tl, "A7:C7")
	before := tl.Notation()

	if !tl.GoToStart() || tl.Pointer() != 0 {
		t.Fatalf("GoToStart failed")
	}
	if tl.GoToStart() {
		t.Fatalf("GoToStart at start should be a no-op")
	}
	if tl.Current() != NewBoard() {
		t.Fatalf("start snapshot changed")
	}
	entry, ok := tl.Redo()
	if !ok || entry.Move.String() != "B8:B6" {
		t.Fatalf("Redo returned %v %v", entry.Move, ok)
	}
	if !tl.GoToLast() || tl.Pointer() != 2 {
		t.Fatalf("GoToLast failed")
	}
	if tl.GoToLast() {
		t.Fatalf("GoToLast at tip should be a no-op")
	}
	after := tl.Notation()
	if len(before) != len(after) {
		t.Fatalf("navigation changed history: %v vs %v", before, after)
	}
	rounds := tl.Rounds()
	if len(rounds) != 1 || rounds[0].Black != "B8:B6" || rounds[0].White != "A7:C7" {
		t.Fatalf("rounds = %+v", rounds)
	}
}

func TestTimelineIgnoresSameSquareAndRejectsOutOfRange(t *testing.T) {
	tl := NewTimeline()
	res, err := tl.AttemptMove(Coord{0, 1}, Coord{0, 1})
	if err != nil || res.Status != MoveIgnored {
		t.Fatalf("same-square click should be ignored: %v %v", res.Status, err)
	}
	if _, err := tl.AttemptMove(Coord{0, 1}, Coord{0, 9}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if tl.Len() != 1 {
		t.Fatalf("rejected moves must not grow history")
	}
}

func TestTimelineCaptureAndWinnerLifecycle(t *testing.T) {
	start := boardWith(
		[]Coord{{2, 4}, {4, 5}},
		[]Coord{{0, 0}, {0, 1}, {2, 5}},
	)
	tl := NewTimelineFrom(start)
	res := mustPlay(t, tl, "F4:F6")
	if !res.Capture {
		t.Fatalf("expected capture")
	}
	if res.Winner != Black {
		t.Fatalf("mover should win the double connection, got %v", res.Winner)
	}
	total := tl.Current().Count(Black) + tl.Current().Count(White)
	if total != 4 {
		t.Fatalf("capture should remove exactly one piece, total=%d", total)
	}

	again, err := tl.AttemptMove(Coord{0, 0}, Coord{1, 0})
	if err != nil || again.Status != MoveIgnored {
		t.Fatalf("moves after a win must be ignored, got %v %v", again.Status, err)
	}

	entry, ok := tl.Undo()
	if !ok || !entry.Move.Capture {
		t.Fatalf("undo should report the captured move")
	}
	if tl.Winner() != NoSide {
		t.Fatalf("winner must clear after leaving the terminal position")
	}
	tl.Redo()
	if tl.Winner() != Black {
		t.Fatalf("winner must return with the terminal position")
	}
}

func TestTimelineReset(t *testing.T) {
	tl := NewTimeline()
	mustPlay(t, tl, "B8:B6")
	tl.Reset()
	if tl.Len() != 1 || tl.Pointer() != 0 || tl.Winner() != NoSide {
		t.Fatalf("reset did not clear state")
	}
	if _, ok := tl.LastMove(); ok {
		t.Fatalf("no last move after reset")
	}
}
