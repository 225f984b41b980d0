package loadto

import "time"

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
