package loa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/park285/loa-kakao-bot/internal/domain"
	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
)

// Mode selects who plays White.
type Mode string

const (
	// ModePvP is hot-seat: the same player enters both sides.
	ModePvP Mode = "pvp"
	// ModePvB pits the player (Black) against the engine (White).
	ModePvB Mode = "pvb"
)

const (
	HumanSide  = coreloa.Black
	EngineSide = coreloa.White
)

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pvb", "bot", "ai":
		return ModePvB, nil
	case "pvp", "hotseat", "local":
		return ModePvP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, raw)
	}
}

type SessionMeta struct {
	SessionID string
	Room      string
	Sender    string
}

type sessionIdentity struct {
	SessionID  string
	RoomHash   string
	PlayerHash string
}

// sessionPayload is what the cache keeps per session. Moves is the whole
// branch including redoable moves; Pointer is how many of them are applied.
// Every field is always encoded so a decode into a reused value overwrites it.
type sessionPayload struct {
	SessionUUID string    `json:"session_uuid"`
	PlayerHash  string    `json:"player_hash"`
	RoomHash    string    `json:"room_hash"`
	PlayerName  string    `json:"player_name"`
	Mode        Mode      `json:"mode"`
	Level       int       `json:"level"`
	Moves       []string  `json:"moves"`
	Pointer     int       `json:"pointer"`
	Revision    int64     `json:"revision"`
	Recorded    bool      `json:"recorded"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionState is a read-only view of a session at its displayed position.
type SessionState struct {
	SessionUUID string
	PlayerName  string
	Mode        Mode
	Level       int
	Preset      string
	Board       coreloa.Board
	Turn        coreloa.Side
	Winner      coreloa.Side
	Pointer     int
	Length      int
	Moves       []string
	Rounds      []coreloa.Round
	ActiveRound int
	LastMove    *coreloa.Move
	CanUndo     bool
	CanRedo     bool
	BlackCount  int
	WhiteCount  int
	Revision    int64
	StartedAt   time.Time
	UpdatedAt   time.Time
	BoardImage  []byte
	Profile     *domain.LoaProfile
	// EnginePending is set while an engine reply is scheduled.
	EnginePending bool
	// Resigned is set by Quit when the unfinished game was recorded as lost.
	Resigned bool
}

func (s *SessionState) Finished() bool { return s != nil && s.Winner != coreloa.NoSide }

// replaySession rebuilds the timeline of p by replaying its branch and moving
// the pointer back to where it was.
func replaySession(p *sessionPayload) (*coreloa.Timeline, error) {
	tl := coreloa.NewTimeline()
	for _, raw := range p.Moves {
		mv, err := coreloa.ParseMove(raw)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", raw, err)
		}
		res, err := tl.AttemptMove(mv.From, mv.To)
		if err != nil {
			return nil, fmt.Errorf("apply move %s: %w", raw, err)
		}
		if !res.Accepted() {
			return nil, fmt.Errorf("apply move %s: %s (%v)", raw, res.Status, res.Reason)
		}
	}
	if !tl.Seek(p.Pointer) {
		return nil, fmt.Errorf("session pointer %d out of range (moves=%d)", p.Pointer, len(p.Moves))
	}
	return tl, nil
}

func stateFromTimeline(p *sessionPayload, tl *coreloa.Timeline) *SessionState {
	board := tl.Current()
	notation := tl.Notation()
	state := &SessionState{
		SessionUUID: p.SessionUUID,
		PlayerName:  p.PlayerName,
		Mode:        p.Mode,
		Level:       p.Level,
		Board:       board,
		Turn:        tl.CurrentPlayer(),
		Winner:      tl.Winner(),
		Pointer:     tl.Pointer(),
		Length:      len(notation),
		Moves:       notation[:tl.Pointer()],
		Rounds:      tl.Rounds(),
		ActiveRound: tl.ActiveRound(),
		CanUndo:     tl.CanUndo(),
		CanRedo:     tl.CanRedo(),
		BlackCount:  board.Count(coreloa.Black),
		WhiteCount:  board.Count(coreloa.White),
		Revision:    p.Revision,
		StartedAt:   p.StartedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Mode == ModePvB {
		state.Preset = presetName(p.Level)
	}
	if mv, ok := tl.LastMove(); ok {
		state.LastMove = &mv
	}
	return state
}

func deriveIdentity(meta SessionMeta) sessionIdentity {
	sessionID := strings.ToLower(strings.TrimSpace(meta.SessionID))
	room := strings.ToLower(strings.TrimSpace(meta.Room))
	sender := strings.ToLower(strings.TrimSpace(meta.Sender))
	return sessionIdentity{
		SessionID:  sessionID,
		RoomHash:   hashString(room),
		PlayerHash: hashString(room + ":" + sender),
	}
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func sessionKey(sessionID string) string {
	return "loa:sessions:" + hashString(strings.TrimSpace(sessionID))
}

func profileCacheKey(identity sessionIdentity) string {
	return "loa:profile:" + identity.PlayerHash + ":" + identity.RoomHash
}

func normalizeHUDPlayerLabel(raw string) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	runes := []rune(cleaned)
	if len(runes) > playerLabelRuneLimit {
		return strings.TrimSpace(string(runes[:playerLabelRuneLimit])) + "..."
	}
	return cleaned
}
