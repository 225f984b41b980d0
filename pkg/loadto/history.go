package loadto

import "time"

type LoaGame struct {
	ID          int64
	SessionUUID string
	Mode        string
	Level       int
	PlayerSide  string
	Winner      string
	Result      string
	Moves       []string
	MoveCount   int
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}
