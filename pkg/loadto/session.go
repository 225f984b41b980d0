package loadto

import "time"

// Round pairs Black's move with White's reply; White is empty while pending.
type Round struct {
	Number int
	Black  string
	White  string
}

type SessionState struct {
	SessionUUID   string
	PlayerName    string
	Mode          string
	Level         int
	Preset        string
	Turn          string
	Winner        string
	Pointer       int
	Length        int
	Moves         []string
	Rounds        []Round
	ActiveRound   int
	LastMove      string
	CanUndo       bool
	CanRedo       bool
	BlackCount    int
	WhiteCount    int
	EnginePending bool
	Resigned      bool
	BoardImage    []byte
	Profile       *LoaProfile
	StartedAt     time.Time
	UpdatedAt     time.Time
}

// Finished reports whether the displayed position has a winner.
func (s *SessionState) Finished() bool {
	return s != nil && s.Winner != "" && s.Winner != "none"
}

// Targets lists the legal destinations of one piece.
type Targets struct {
	State   *SessionState
	From    string
	Side    string
	Targets []string
}
