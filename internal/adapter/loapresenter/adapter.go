package loapresenter

import (
	"errors"

	"github.com/park285/loa-kakao-bot/internal/domain"
	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
	svc "github.com/park285/loa-kakao-bot/internal/service/loa"
	"github.com/park285/loa-kakao-bot/pkg/loadto"
)

func ToDTOState(s *svc.SessionState) *loadto.SessionState {
	if s == nil {
		return nil
	}
	out := &loadto.SessionState{
		SessionUUID:   s.SessionUUID,
		PlayerName:    s.PlayerName,
		Mode:          string(s.Mode),
		Level:         s.Level,
		Preset:        s.Preset,
		Turn:          s.Turn.String(),
		Winner:        s.Winner.String(),
		Pointer:       s.Pointer,
		Length:        s.Length,
		Moves:         append([]string(nil), s.Moves...),
		Rounds:        toDTORounds(s.Rounds),
		ActiveRound:   s.ActiveRound,
		CanUndo:       s.CanUndo,
		CanRedo:       s.CanRedo,
		BlackCount:    s.BlackCount,
		WhiteCount:    s.WhiteCount,
		EnginePending: s.EnginePending,
		Resigned:      s.Resigned,
		BoardImage:    append([]byte(nil), s.BoardImage...),
		Profile:       ToDTOProfile(s.Profile),
		StartedAt:     s.StartedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.LastMove != nil {
		out.LastMove = s.LastMove.String()
	}
	return out
}

func toDTORounds(rounds []coreloa.Round) []loadto.Round {
	if len(rounds) == 0 {
		return nil
	}
	out := make([]loadto.Round, 0, len(rounds))
	for _, r := range rounds {
		out = append(out, loadto.Round{Number: r.Number, Black: r.Black, White: r.White})
	}
	return out
}

func ToDTOMoveSummary(m *svc.MoveSummary) *loadto.MoveSummary {
	if m == nil {
		return nil
	}
	out := &loadto.MoveSummary{
		State:    ToDTOState(m.State),
		Status:   m.Result.Status.String(),
		Capture:  m.Result.Capture,
		Winner:   m.Result.Winner.String(),
		Reason:   ReasonCode(m.Result.Reason),
		Finished: m.Finished,
		GameID:   m.GameID,
		Profile:  ToDTOProfile(m.Profile),
	}
	if m.Result.Status != coreloa.MoveIgnored {
		out.Move = m.Result.Move.String()
		out.Player = m.Result.Player.String()
	}
	return out
}

func ToDTONavigation(n *svc.NavigationSummary) *loadto.Navigation {
	if n == nil {
		return nil
	}
	out := &loadto.Navigation{State: ToDTOState(n.State)}
	for _, e := range n.Entries {
		out.Moves = append(out.Moves, e.Move.String())
	}
	return out
}

func ToDTOTargets(t *svc.TargetsResult) *loadto.Targets {
	if t == nil {
		return nil
	}
	out := &loadto.Targets{
		State:   ToDTOState(t.State),
		From:    t.From.String(),
		Side:    t.Side.String(),
		Targets: make([]string, 0, len(t.Targets)),
	}
	for _, c := range t.Targets {
		out.Targets = append(out.Targets, c.String())
	}
	return out
}

func ToDTOProfile(p *domain.LoaProfile) *loadto.LoaProfile {
	if p == nil {
		return nil
	}
	return &loadto.LoaProfile{
		PlayerHash:     p.PlayerHash,
		RoomHash:       p.RoomHash,
		PreferredLevel: p.PreferredLevel,
		GamesPlayed:    p.GamesPlayed,
		Wins:           p.Wins,
		Losses:         p.Losses,
		Streak:         p.Streak,
		StreakType:     p.StreakType,
		LastLevel:      p.LastLevel,
		LastPlayedAt:   p.LastPlayedAt,
		UpdatedAt:      p.UpdatedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func ToDTOGame(g *domain.LoaGame) *loadto.LoaGame {
	if g == nil {
		return nil
	}
	return &loadto.LoaGame{
		ID:          g.ID,
		SessionUUID: g.SessionUUID,
		Mode:        g.Mode,
		Level:       g.Level,
		PlayerSide:  g.PlayerSide,
		Winner:      g.Winner,
		Result:      g.Result,
		Moves:       append([]string(nil), g.Moves...),
		MoveCount:   g.MoveCount,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
		Duration:    g.Duration,
	}
}

func ToDTOGames(list []*domain.LoaGame) []*loadto.LoaGame {
	out := make([]*loadto.LoaGame, 0, len(list))
	for _, g := range list {
		if g == nil {
			continue
		}
		out = append(out, ToDTOGame(g))
	}
	return out
}

// ReasonCode maps a rule violation to a catalog-friendly code.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, coreloa.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, coreloa.ErrSameSquare):
		return "same_square"
	case errors.Is(err, coreloa.ErrNoPiece):
		return "no_piece"
	case errors.Is(err, coreloa.ErrNotALine):
		return "not_a_line"
	case errors.Is(err, coreloa.ErrDistanceMismatch):
		return "distance_mismatch"
	case errors.Is(err, coreloa.ErrPathBlocked):
		return "path_blocked"
	case errors.Is(err, coreloa.ErrOwnPiece):
		return "own_piece"
	case errors.Is(err, coreloa.ErrNotYourPiece):
		return "not_your_piece"
	default:
		return "unknown"
	}
}

var domainErrorCodes = []struct {
	target    error
	code      string
	retryable bool
}{
	{svc.ErrSessionNotFound, loadto.CodeSessionNotFound, false},
	{svc.ErrSessionInProgress, loadto.CodeSessionInProgress, false},
	{svc.ErrIllegalMove, loadto.CodeIllegalMove, false},
	{svc.ErrInvalidMove, loadto.CodeInvalidMove, false},
	{svc.ErrGameFinished, loadto.CodeGameFinished, false},
	{svc.ErrNotYourTurn, loadto.CodeNotYourTurn, true},
	{svc.ErrGameNotFound, loadto.CodeGameNotFound, false},
	{svc.ErrProfileNotFound, loadto.CodeProfileNotFound, false},
	{svc.ErrUndoNotAvailable, loadto.CodeUndoUnavailable, false},
	{svc.ErrRedoNotAvailable, loadto.CodeRedoUnavailable, false},
	{svc.ErrRoomNotAllowed, loadto.CodeRoomNotAllowed, false},
	{svc.ErrInvalidMode, loadto.CodeInvalidMode, false},
	{svc.ErrInvalidLevel, loadto.CodeInvalidLevel, false},
}

// ToDomainError classifies a service error for the formatter.
func ToDomainError(err error) *loadto.DomainError {
	if err == nil {
		return nil
	}
	for _, c := range domainErrorCodes {
		if errors.Is(err, c.target) {
			return &loadto.DomainError{Code: c.code, Message: err.Error(), Retryable: c.retryable}
		}
	}
	return &loadto.DomainError{Code: loadto.CodeInternal, Message: err.Error(), Retryable: true}
}
