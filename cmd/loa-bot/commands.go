package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/loa-kakao-bot/internal/adapter/loapresenter"
	"github.com/park285/loa-kakao-bot/internal/domain"
	svcloa "github.com/park285/loa-kakao-bot/internal/service/loa"
	"go.uber.org/zap"
)

const commandTimeout = 15 * time.Second

var commandWords = map[string]struct{}{"loa": {}, "로아": {}, "라인즈": {}}

// subcommands maps every accepted word, English or Korean, to its command.
var subcommands = map[string]string{
	"start": "start", "시작": "start",
	"status": "status", "현황": "status",
	"move": "move", "이동": "move",
	"undo": "undo", "무르기": "undo",
	"redo": "redo", "되살리기": "redo",
	"first": "first", "처음": "first",
	"last": "last", "마지막": "last",
	"moves": "moves", "기보": "moves",
	"targets": "targets", "후보": "targets",
	"restart": "restart", "재시작": "restart",
	"quit": "quit", "종료": "quit", "기권": "quit",
	"history": "history", "기록": "history",
	"game": "game", "기보보기": "game",
	"profile": "profile", "프로필": "profile",
	"level": "level", "난이도": "level",
	"help": "help", "도움말": "help",
}

// loaService is the part of the session service the router drives.
type loaService interface {
	StartSession(ctx context.Context, meta svcloa.SessionMeta, mode svcloa.Mode, level int) (*svcloa.SessionState, error)
	Status(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.SessionState, error)
	Play(ctx context.Context, meta svcloa.SessionMeta, input string) (*svcloa.MoveSummary, error)
	Undo(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.NavigationSummary, error)
	Redo(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.NavigationSummary, error)
	GoToStart(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.NavigationSummary, error)
	GoToLast(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.NavigationSummary, error)
	Restart(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.SessionState, error)
	Quit(ctx context.Context, meta svcloa.SessionMeta) (*svcloa.SessionState, error)
	LegalTargets(ctx context.Context, meta svcloa.SessionMeta, square string) (*svcloa.TargetsResult, error)
	History(ctx context.Context, meta svcloa.SessionMeta, limit int) ([]*domain.LoaGame, error)
	Game(ctx context.Context, meta svcloa.SessionMeta, id int64) (*domain.LoaGame, error)
	Profile(ctx context.Context, meta svcloa.SessionMeta) (*domain.LoaProfile, error)
	UpdatePreferredLevel(ctx context.Context, meta svcloa.SessionMeta, level int) (*domain.LoaProfile, error)
}

type router struct {
	service   loaService
	presenter *loapresenter.Presenter
	formatter *loapresenter.Formatter
	logger    *zap.Logger
}

// parseCommand splits "<prefix>loa <sub> args..." and reports whether the
// text is addressed to this bot.
func parseCommand(text, prefix string) (sub string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	if _, known := commandWords[strings.ToLower(fields[0])]; !known {
		return "", nil, false
	}
	if len(fields) == 1 {
		return "help", nil, true
	}
	word := strings.ToLower(fields[1])
	if canonical, known := subcommands[word]; known {
		return canonical, fields[2:], true
	}
	// a bare move such as "B8:B6" or "B8 B6"
	return "move", fields[1:], true
}

// parseStartArgs reads "pvp", "level2", "lv2" or "2" in any order.
func parseStartArgs(args []string) (svcloa.Mode, int, error) {
	mode := svcloa.ModePvB
	level := 0
	for _, arg := range args {
		if n, ok := parseLevel(arg); ok {
			level = n
			continue
		}
		m, err := svcloa.ParseMode(arg)
		if err != nil {
			return "", 0, err
		}
		mode = m
	}
	return mode, level, nil
}

func parseLevel(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "level"), "lv")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *router) handle(room string, meta svcloa.SessionMeta, sub string, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := r.dispatch(ctx, room, meta, sub, args); err != nil {
		r.logger.Debug("loa_command_failed",
			zap.String("command", sub),
			zap.String("room", room),
			zap.Error(err),
		)
		if sendErr := r.presenter.Text(room, r.formatter.Error(loapresenter.ToDomainError(err))); sendErr != nil {
			r.logger.Warn("loa_reply_failed", zap.Error(sendErr))
		}
	}
}

func (r *router) dispatch(ctx context.Context, room string, meta svcloa.SessionMeta, sub string, args []string) error {
	switch sub {
	case "help":
		return r.presenter.Text(room, r.formatter.Help())
	case "start":
		mode, level, err := parseStartArgs(args)
		if err != nil {
			return err
		}
		state, err := r.service.StartSession(ctx, meta, mode, level)
		resumed := errors.Is(err, svcloa.ErrSessionInProgress) && state != nil
		if err != nil && !resumed {
			return err
		}
		dto := loapresenter.ToDTOState(state)
		return r.presenter.Board(room, r.formatter.Start(dto, resumed), dto)
	case "status":
		state, err := r.service.Status(ctx, meta)
		if err != nil {
			return err
		}
		dto := loapresenter.ToDTOState(state)
		return r.presenter.Board(room, r.formatter.Status(dto), dto)
	case "moves":
		state, err := r.service.Status(ctx, meta)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.Moves(loapresenter.ToDTOState(state)))
	case "move":
		return r.play(ctx, room, meta, strings.Join(args, " "))
	case "undo", "redo", "first", "last":
		return r.navigate(ctx, room, meta, sub)
	case "targets":
		if len(args) == 0 {
			return svcloa.ErrInvalidMove
		}
		res, err := r.service.LegalTargets(ctx, meta, args[0])
		if err != nil {
			return err
		}
		dto := loapresenter.ToDTOTargets(res)
		return r.presenter.Board(room, r.formatter.Targets(dto), dto.State)
	case "restart":
		state, err := r.service.Restart(ctx, meta)
		if err != nil {
			return err
		}
		dto := loapresenter.ToDTOState(state)
		return r.presenter.Board(room, r.formatter.Restart(dto), dto)
	case "quit":
		state, err := r.service.Quit(ctx, meta)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.Quit(loapresenter.ToDTOState(state)))
	case "history":
		limit := 0
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		games, err := r.service.History(ctx, meta, limit)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.History(loapresenter.ToDTOGames(games)))
	case "game":
		if len(args) == 0 {
			return svcloa.ErrGameNotFound
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", svcloa.ErrGameNotFound, args[0])
		}
		game, err := r.service.Game(ctx, meta, id)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.Game(loapresenter.ToDTOGame(game)))
	case "profile":
		profile, err := r.service.Profile(ctx, meta)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.Profile(loapresenter.ToDTOProfile(profile)))
	case "level":
		if len(args) == 0 {
			return svcloa.ErrInvalidLevel
		}
		level, ok := parseLevel(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", svcloa.ErrInvalidLevel, args[0])
		}
		profile, err := r.service.UpdatePreferredLevel(ctx, meta, level)
		if err != nil {
			return err
		}
		return r.presenter.Text(room, r.formatter.PreferredLevelUpdated(loapresenter.ToDTOProfile(profile)))
	default:
		return r.presenter.Text(room, r.formatter.Help())
	}
}

func (r *router) play(ctx context.Context, room string, meta svcloa.SessionMeta, input string) error {
	summary, err := r.service.Play(ctx, meta, input)
	if errors.Is(err, svcloa.ErrIllegalMove) && summary != nil {
		return r.presenter.Text(room, r.formatter.Move(loapresenter.ToDTOMoveSummary(summary)))
	}
	if err != nil {
		return err
	}
	dto := loapresenter.ToDTOMoveSummary(summary)
	if dto.Status == "ignored" {
		return nil
	}
	return r.presenter.Board(room, r.formatter.Move(dto), dto.State)
}

func (r *router) navigate(ctx context.Context, room string, meta svcloa.SessionMeta, kind string) error {
	var (
		nav *svcloa.NavigationSummary
		err error
	)
	switch kind {
	case "undo":
		nav, err = r.service.Undo(ctx, meta)
	case "redo":
		nav, err = r.service.Redo(ctx, meta)
	case "first":
		nav, err = r.service.GoToStart(ctx, meta)
	default:
		nav, err = r.service.GoToLast(ctx, meta)
	}
	if err != nil {
		return err
	}
	dto := loapresenter.ToDTONavigation(nav)
	return r.presenter.Board(room, r.formatter.Navigation(kind, dto), dto.State)
}

// onEvent publishes engine replies, which arrive after the command returned.
func (r *router) onEvent(_ context.Context, ev svcloa.Event) {
	switch ev.Kind {
	case svcloa.EventMoveRejected:
		r.logger.Debug("loa_move_rejected",
			zap.String("session_uuid", ev.SessionUUID),
			zap.String("move", ev.Move.String()),
			zap.String("reason", loapresenter.ReasonCode(ev.Reason)),
		)
		return
	case svcloa.EventGameFinished:
		r.logger.Info("loa_game_finished",
			zap.String("session_uuid", ev.SessionUUID),
			zap.String("winner", ev.Winner.String()),
			zap.Int64("game_id", ev.GameID),
		)
		return
	}
	if !ev.ByEngine || ev.State == nil {
		return
	}
	dto := loapresenter.ToDTOState(ev.State)
	text := r.formatter.EngineMove(ev.Move.String(), ev.Capture, dto, ev.GameID)
	if err := r.presenter.Board(ev.Meta.Room, text, dto); err != nil {
		r.logger.Warn("loa_engine_reply_send_failed", zap.String("room", ev.Meta.Room), zap.Error(err))
	}
}
