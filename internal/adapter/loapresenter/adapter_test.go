package loapresenter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/park285/loa-kakao-bot/internal/domain"
	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
	svc "github.com/park285/loa-kakao-bot/internal/service/loa"
	"github.com/park285/loa-kakao-bot/pkg/loadto"
)

func mustMove(t *testing.T, raw string) coreloa.Move {
	t.Helper()
	mv, err := coreloa.ParseMove(raw)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", raw, err)
	}
	return mv
}

func TestToDTOState(t *testing.T) {
	last := mustMove(t, "B8:B6")
	state := &svc.SessionState{
		SessionUUID: "u-1",
		Mode:        svc.ModePvB,
		Level:       2,
		Preset:      "level2",
		Board:       coreloa.NewBoard(),
		Turn:        coreloa.White,
		Winner:      coreloa.NoSide,
		Pointer:     1,
		Length:      1,
		Moves:       []string{"B8:B6"},
		Rounds:      []coreloa.Round{{Number: 1, Black: "B8:B6"}},
		ActiveRound: 1,
		LastMove:    &last,
		CanUndo:     true,
		BlackCount:  12,
		WhiteCount:  12,
		BoardImage:  []byte{1, 2},
		Profile:     &domain.LoaProfile{Wins: 1},
	}
	dto := ToDTOState(state)
	if dto.Mode != "pvb" || dto.Turn != "white" || dto.Winner != "none" || dto.LastMove != "B8:B6" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Finished() {
		t.Fatalf("unfinished state reported finished")
	}
	if len(dto.Rounds) != 1 || dto.Rounds[0].Black != "B8:B6" || dto.Rounds[0].White != "" {
		t.Fatalf("rounds = %+v", dto.Rounds)
	}
	state.Moves[0] = "changed"
	state.BoardImage[0] = 9
	if dto.Moves[0] != "B8:B6" || dto.BoardImage[0] != 1 {
		t.Fatalf("dto must not alias the service slices")
	}
	if dto.Profile == nil || dto.Profile.Wins != 1 {
		t.Fatalf("profile not converted")
	}
	if ToDTOState(nil) != nil {
		t.Fatalf("nil state should convert to nil")
	}
}

func TestToDTOMoveSummary(t *testing.T) {
	mv := mustMove(t, "B8:B5")
	illegal := &svc.MoveSummary{
		State:  &svc.SessionState{Turn: coreloa.Black},
		Result: coreloa.MoveResult{Status: coreloa.MoveIllegal, Move: mv, Player: coreloa.Black, Reason: coreloa.ErrDistanceMismatch},
	}
	dto := ToDTOMoveSummary(illegal)
	if dto.Status != "illegal" || dto.Move != "B8:B5" || dto.Player != "black" || dto.Reason != "distance_mismatch" {
		t.Fatalf("unexpected summary: %+v", dto)
	}

	ignored := ToDTOMoveSummary(&svc.MoveSummary{State: &svc.SessionState{}, Result: coreloa.MoveResult{Status: coreloa.MoveIgnored}})
	if ignored.Status != "ignored" || ignored.Move != "" || ignored.Reason != "" {
		t.Fatalf("ignored summary = %+v", ignored)
	}
}

func TestToDTOTargetsAndNavigation(t *testing.T) {
	from, _ := coreloa.ParseCoord("B8")
	to, _ := coreloa.ParseCoord("B6")
	targets := ToDTOTargets(&svc.TargetsResult{From: from, Side: coreloa.Black, Targets: []coreloa.Coord{to}})
	if targets.From != "B8" || targets.Side != "black" || len(targets.Targets) != 1 || targets.Targets[0] != "B6" {
		t.Fatalf("targets = %+v", targets)
	}

	nav := ToDTONavigation(&svc.NavigationSummary{Entries: []coreloa.HistoryEntry{{Move: mustMove(t, "H4:F4")}, {Move: mustMove(t, "B8:B6")}}})
	if len(nav.Moves) != 2 || nav.Moves[0] != "H4:F4" {
		t.Fatalf("navigation = %+v", nav)
	}
}

func TestToDTOGamesSkipsNil(t *testing.T) {
	games := ToDTOGames([]*domain.LoaGame{nil, {ID: 3, Moves: []string{"B8:B6"}, Result: "win"}})
	if len(games) != 1 || games[0].ID != 3 || games[0].Result != "win" {
		t.Fatalf("games = %+v", games)
	}
}

func TestReasonCodeUnwraps(t *testing.T) {
	err := fmt.Errorf("%w: %w", svc.ErrIllegalMove, coreloa.ErrPathBlocked)
	if got := ReasonCode(err); got != "path_blocked" {
		t.Fatalf("ReasonCode = %q", got)
	}
	if got := ReasonCode(errors.New("other")); got != "unknown" {
		t.Fatalf("ReasonCode = %q", got)
	}
}

func TestToDomainError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("load: %w", svc.ErrSessionNotFound), loadto.CodeSessionNotFound},
		{fmt.Errorf("%w: bad", svc.ErrInvalidMove), loadto.CodeInvalidMove},
		{svc.ErrNotYourTurn, loadto.CodeNotYourTurn},
		{svc.ErrRedoNotAvailable, loadto.CodeRedoUnavailable},
		{errors.New("redis down"), loadto.CodeInternal},
	}
	for _, c := range cases {
		got := ToDomainError(c.err)
		if got == nil || got.Code != c.code {
			t.Fatalf("ToDomainError(%v) = %+v, want %s", c.err, got, c.code)
		}
	}
	if ToDomainError(nil) != nil {
		t.Fatalf("nil error should map to nil")
	}
}
