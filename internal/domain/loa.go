package domain

import "time"

// LoaGame is a finished Lines of Action game as stored for history.
type LoaGame struct {
	ID          int64
	SessionUUID string
	PlayerHash  string
	RoomHash    string
	Mode        string
	Level       int
	// PlayerSide is the side the human played; empty in hot-seat games.
	PlayerSide string
	Winner     string
	Result     string
	Moves      []string
	FinalBoard string
	MoveCount  int
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
}

type LoaProfile struct {
	PlayerHash     string
	RoomHash       string
	PreferredLevel int
	GamesPlayed    int
	Wins           int
	Losses         int
	Streak         int
	StreakType     string
	LastLevel      int
	LastPlayedAt   time.Time
	UpdatedAt      time.Time
	CreatedAt      time.Time
}
