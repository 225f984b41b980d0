package loadto

// MoveSummary describes the outcome of one submitted move.
type MoveSummary struct {
	State    *SessionState
	Move     string
	Player   string
	Status   string
	Capture  bool
	Winner   string
	Reason   string
	Finished bool
	GameID   int64
	Profile  *LoaProfile
}

// Navigation is the result of undo, redo, first or last.
type Navigation struct {
	State *SessionState
	Moves []string
}
