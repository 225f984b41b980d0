package loa

// MoveStatus classifies the outcome of Timeline.AttemptMove.
type MoveStatus int

const (
	// MoveIgnored is a silent no-op: same square clicked twice, or the
	// displayed position is already won.
	MoveIgnored MoveStatus = iota
	// MoveIllegal is a real attempt that the rules refuse.
	MoveIllegal
	MoveAccepted
)

func (s MoveStatus) String() string {
	switch s {
	case MoveAccepted:
		return "accepted"
	case MoveIllegal:
		return "illegal"
	default:
		return "ignored"
	}
}

type MoveResult struct {
	Status  MoveStatus
	Move    Move
	Player  Side
	Capture bool
	Winner  Side
	// Reason is set for MoveIllegal.
	Reason error
}

func (r MoveResult) Accepted() bool { return r.Status == MoveAccepted }

// HistoryEntry is one played move and the position it produced.
type HistoryEntry struct {
	Move   Move
	Player Side
	Board  Board
}

// Round pairs Black's move with White's reply. White is empty while the
// reply has not been played.
type Round struct {
	Number int
	Black  string
	White  string
}

// Timeline keeps every position of the current branch and a pointer to the
// displayed one. Undo and redo move the pointer only; playing a move from a
// position behind the tip discards the redoable future first.
type Timeline struct {
	snapshots []Board
	entries   []HistoryEntry
	outcomes  []Side
	pointer   int
}

func NewTimeline() *Timeline {
	t := &Timeline{}
	t.Reset()
	return t
}

// Reset returns to the starting position and clears history and winner.
func (t *Timeline) Reset() {
	t.snapshots = []Board{NewBoard()}
	t.entries = nil
	t.outcomes = []Side{NoSide}
	t.pointer = 0
}

func (t *Timeline) Current() Board { return t.snapshots[t.pointer] }

func (t *Timeline) Pointer() int { return t.pointer }

// Len is the number of snapshots, the starting position included.
func (t *Timeline) Len() int { return len(t.snapshots) }

// Winner is the winner of the displayed position, NoSide while undecided.
func (t *Timeline) Winner() Side { return t.outcomes[t.pointer] }

// CurrentPlayer is Black on even pointers and White on odd ones.
func (t *Timeline) CurrentPlayer() Side {
	if t.pointer%2 == 0 {
		return Black
	}
	return White
}

func (t *Timeline) CanUndo() bool { return t.pointer > 0 }

func (t *Timeline) CanRedo() bool { return t.pointer < len(t.snapshots)-1 }

// AttemptMove plays from->to for the side on move. The error is reserved for
// coordinates outside the board; rule violations come back as MoveIllegal.
func (t *Timeline) AttemptMove(from, to Coord) (MoveResult, error) {
	if !from.Valid() || !to.Valid() {
		return MoveResult{}, ErrOutOfRange
	}
	player := t.CurrentPlayer()
	res := MoveResult{Move: Move{From: from, To: to}, Player: player, Winner: t.Winner()}
	if from == to || res.Winner != NoSide {
		res.Status = MoveIgnored
		return res, nil
	}

	board := t.Current()
	if err := ValidateMove(board, from, to); err != nil {
		res.Status, res.Reason = MoveIllegal, err
		return res, nil
	}
	if board.At(from) != player {
		res.Status, res.Reason = MoveIllegal, ErrNotYourPiece
		return res, nil
	}
	if board.At(to) == player {
		res.Status, res.Reason = MoveIllegal, ErrOwnPiece
		return res, nil
	}

	if t.CanRedo() {
		t.snapshots = t.snapshots[:t.pointer+1]
		t.entries = t.entries[:t.pointer]
		t.outcomes = t.outcomes[:t.pointer+1]
	}

	next, capture := board.Apply(res.Move)
	res.Move.Capture = capture
	res.Capture = capture
	res.Winner = Winner(next, player)

	t.snapshots = append(t.snapshots, next)
	t.entries = append(t.entries, HistoryEntry{Move: res.Move, Player: player, Board: next})
	t.outcomes = append(t.outcomes, res.Winner)
	t.pointer++

	res.Status = MoveAccepted
	return res, nil
}

// Undo steps back one position and returns the move that was unapplied.
func (t *Timeline) Undo() (HistoryEntry, bool) {
	if !t.CanUndo() {
		return HistoryEntry{}, false
	}
	entry := t.entries[t.pointer-1]
	t.pointer--
	return entry, true
}

// Redo steps forward one position and returns the move that was reapplied.
func (t *Timeline) Redo() (HistoryEntry, bool) {
	if !t.CanRedo() {
		return HistoryEntry{}, false
	}
	entry := t.entries[t.pointer]
	t.pointer++
	return entry, true
}

func (t *Timeline) GoToStart() bool {
	if !t.CanUndo() {
		return false
	}
	t.pointer = 0
	return true
}

func (t *Timeline) GoToLast() bool {
	if !t.CanRedo() {
		return false
	}
	t.pointer = len(t.snapshots) - 1
	return true
}

// Seek moves the pointer to snapshot i.
func (t *Timeline) Seek(i int) bool {
	if i < 0 || i >= len(t.snapshots) {
		return false
	}
	t.pointer = i
	return true
}

// Entries returns every move of the branch, including the redoable ones.
func (t *Timeline) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), t.entries...)
}

// Notation returns the "<from>:<to>" form of every move of the branch.
func (t *Timeline) Notation() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Move.String()
	}
	return out
}

// LastMove is the move that produced the displayed position.
func (t *Timeline) LastMove() (Move, bool) {
	if t.pointer == 0 {
		return Move{}, false
	}
	return t.entries[t.pointer-1].Move, true
}

// Rounds groups the branch into numbered Black/White pairs.
func (t *Timeline) Rounds() []Round {
	rounds := make([]Round, 0, (len(t.entries)+1)/2)
	for i := 0; i < len(t.entries); i += 2 {
		r := Round{Number: i/2 + 1, Black: t.entries[i].Move.String()}
		if i+1 < len(t.entries) {
			r.White = t.entries[i+1].Move.String()
		}
		rounds = append(rounds, r)
	}
	return rounds
}

// ActiveRound is the round holding the displayed position while browsing
// history or waiting for White's reply, 0 otherwise.
func (t *Timeline) ActiveRound() int {
	if t.CanRedo() || t.pointer%2 == 1 {
		return (t.pointer + 1) / 2
	}
	return 0
}

// NewTimelineFrom starts a timeline from an arbitrary position with Black on
// move. Used for puzzles and tests.
func NewTimelineFrom(start Board) *Timeline {
	return &Timeline{
		snapshots: []Board{start},
		outcomes:  []Side{NoSide},
	}
}
