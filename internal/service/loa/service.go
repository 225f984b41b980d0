package loa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/loa-kakao-bot/internal/domain"
	"github.com/park285/loa-kakao-bot/internal/engine"
	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
	"github.com/park285/loa-kakao-bot/internal/service/cache"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("loa session not found")
	ErrSessionInProgress = errors.New("loa session already in progress")
	ErrInvalidMove       = errors.New("invalid loa move")
	ErrIllegalMove       = errors.New("illegal loa move")
	ErrGameFinished      = errors.New("loa game already finished")
	ErrNotYourTurn       = errors.New("engine reply pending")
	ErrGameNotFound      = errors.New("loa game not found")
	ErrProfileNotFound   = errors.New("loa profile not found")
	ErrUndoNotAvailable  = errors.New("no moves available to undo")
	ErrRedoNotAvailable  = errors.New("no moves available to redo")
	ErrRoomNotAllowed    = errors.New("loa room not allowed")
	ErrInvalidMode       = errors.New("unknown loa mode")
	ErrInvalidLevel      = errors.New("unknown loa level")
	ErrEngineUnavailable = errors.New("loa engine unavailable")

	errMoveRejected = errors.New("move rejected")
	errStaleReply   = errors.New("session changed before engine reply")
)

const (
	profileCacheTTL       = 6 * time.Hour
	maxHistoryLimit       = 50
	defaultHistoryLimit   = 10
	engineReplyTimeout    = 10 * time.Second
	playerLabelRuneLimit  = 24
	defaultHUDPlayerLabel = "Player"
)

type Evaluator interface {
	Evaluate(ctx context.Context, req engine.EvaluateRequest) (engine.EvaluateResult, error)
}

type Config struct {
	DefaultLevel int
	SessionTTL   time.Duration
	HistoryLimit int
	AllowedRooms []string
}

type Service struct {
	engine       Evaluator
	cache        *cache.CacheService
	renderer     BoardRenderer
	repo         Repository
	cfg          Config
	allowedRooms map[string]struct{}
	logger       *zap.Logger

	hookMu    sync.RWMutex
	listener  Listener
	scheduler Scheduler

	// replyMu guards replies: session id to the revision whose engine
	// reply is queued in this process.
	replyMu sync.Mutex
	replies map[string]int64
}

type MoveSummary struct {
	State    *SessionState
	Result   coreloa.MoveResult
	Finished bool
	GameID   int64
	Profile  *domain.LoaProfile
}

type NavigationSummary struct {
	State *SessionState
	// Entries are the moves stepped over, in the order they were walked.
	Entries []coreloa.HistoryEntry
}

type TargetsResult struct {
	State   *SessionState
	From    coreloa.Coord
	Side    coreloa.Side
	Targets []coreloa.Coord
}

func NewService(engineSvc Evaluator, cacheSvc *cache.CacheService, repo Repository, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if engineSvc == nil {
		return nil, fmt.Errorf("loa engine evaluator is required")
	}
	if cacheSvc == nil {
		return nil, fmt.Errorf("cache service is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loa repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if cfg.DefaultLevel == 0 {
		cfg.DefaultLevel = 1
	}
	if _, err := resolveLevel(cfg.DefaultLevel); err != nil {
		return nil, fmt.Errorf("default level validation failed: %w", err)
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedRooms := make(map[string]struct{})
	for _, room := range cfg.AllowedRooms {
		normalized := strings.ToLower(strings.TrimSpace(room))
		if normalized == "" {
			continue
		}
		allowedRooms[normalized] = struct{}{}
	}
	cfg.AllowedRooms = append([]string(nil), cfg.AllowedRooms...)

	return &Service{
		engine:       engineSvc,
		cache:        cacheSvc,
		renderer:     renderer,
		repo:         repo,
		cfg:          cfg,
		allowedRooms: allowedRooms,
		logger:       logger,
		scheduler:    timerScheduler{},
		replies:      make(map[string]int64),
	}, nil
}

func (s *Service) SetListener(l Listener) {
	s.hookMu.Lock()
	s.listener = l
	s.hookMu.Unlock()
}

// SetScheduler replaces the timer used for engine replies.
func (s *Service) SetScheduler(sch Scheduler) {
	if sch == nil {
		sch = timerScheduler{}
	}
	s.hookMu.Lock()
	s.scheduler = sch
	s.hookMu.Unlock()
}

func (s *Service) StartSession(ctx context.Context, meta SessionMeta, mode Mode, level int) (*SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)

	existing, tl, err := s.load(ctx, identity)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if existing != nil {
		state := stateFromTimeline(existing, tl)
		if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
			state.Profile = profile
		}
		s.attachBoardImage(ctx, state, nil)
		return state, ErrSessionInProgress
	}

	if mode == "" {
		mode = ModePvB
	}
	if mode != ModePvB && mode != ModePvP {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}

	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	if level <= 0 {
		level = s.cfg.DefaultLevel
		if profile != nil && profile.PreferredLevel > 0 {
			level = profile.PreferredLevel
		}
	}
	if _, err := resolveLevel(level); err != nil {
		return nil, err
	}

	now := time.Now()
	payload := &sessionPayload{
		SessionUUID: uuid.NewString(),
		PlayerHash:  identity.PlayerHash,
		RoomHash:    identity.RoomHash,
		PlayerName:  normalizeHUDPlayerLabel(meta.Sender),
		Mode:        mode,
		Level:       level,
		Moves:       []string{},
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cache.Set(ctx, sessionKey(identity.SessionID), payload, s.cfg.SessionTTL); err != nil {
		return nil, err
	}
	s.logger.Info("loa session started",
		zap.String("session_uuid", payload.SessionUUID),
		zap.String("mode", string(mode)),
		zap.Int("level", level),
	)

	state := stateFromTimeline(payload, coreloa.NewTimeline())
	state.Profile = profile
	s.attachBoardImage(ctx, state, nil)
	return state, nil
}

func (s *Service) Status(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	payload, tl, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	state := stateFromTimeline(payload, tl)
	state.EnginePending = s.scheduleEngineReply(meta, payload, tl)
	if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
		state.Profile = profile
	}
	s.attachBoardImage(ctx, state, nil)
	return state, nil
}

// Play applies input for the side to move. A rejected move returns the
// unchanged state together with ErrIllegalMove; an ignored one returns the
// state with a nil error.
func (s *Service) Play(ctx context.Context, meta SessionMeta, input string) (*MoveSummary, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	mv, err := coreloa.ParseMove(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	identity := deriveIdentity(meta)

	var (
		result    coreloa.MoveResult
		finishing bool
	)
	payload, tl, err := s.mutate(ctx, identity, func(p *sessionPayload, tl *coreloa.Timeline) error {
		if tl.Winner() != coreloa.NoSide {
			return ErrGameFinished
		}
		if p.Mode == ModePvB && tl.CurrentPlayer() != HumanSide {
			return ErrNotYourTurn
		}
		res, err := tl.AttemptMove(mv.From, mv.To)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		result = res
		if !res.Accepted() {
			return errMoveRejected
		}
		if res.Winner != coreloa.NoSide && !p.Recorded {
			p.Recorded = true
			finishing = true
		}
		return nil
	})
	if errors.Is(err, errMoveRejected) {
		return s.rejectedSummary(ctx, meta, identity, result)
	}
	if errors.Is(err, ErrNotYourTurn) {
		s.resumeEngineReply(ctx, meta, identity)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	state := stateFromTimeline(payload, tl)
	summary := &MoveSummary{State: state, Result: result, Finished: state.Finished()}
	s.emit(ctx, Event{
		Kind:        EventMoveApplied,
		Meta:        meta,
		SessionUUID: payload.SessionUUID,
		MoveKind:    MovePlayed,
		Move:        result.Move,
		Player:      result.Player,
		Capture:     result.Capture,
		Winner:      result.Winner,
		State:       state,
	})
	if finishing {
		gameID, profile, perr := s.persistFinishedGame(ctx, identity, payload, tl, false)
		if perr != nil {
			s.logger.Warn("failed to persist finished loa game", zap.Error(perr), zap.String("session_uuid", payload.SessionUUID))
		}
		summary.GameID = gameID
		summary.Profile = profile
		state.Profile = profile
		s.emit(ctx, Event{Kind: EventGameFinished, Meta: meta, SessionUUID: payload.SessionUUID, Winner: result.Winner, GameID: gameID, State: state})
	}
	state.EnginePending = s.scheduleEngineReply(meta, payload, tl)
	s.attachBoardImage(ctx, state, nil)
	return summary, nil
}

func (s *Service) rejectedSummary(ctx context.Context, meta SessionMeta, identity sessionIdentity, result coreloa.MoveResult) (*MoveSummary, error) {
	payload, tl, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	state := stateFromTimeline(payload, tl)
	s.attachBoardImage(ctx, state, nil)
	summary := &MoveSummary{State: state, Result: result}
	if result.Status == coreloa.MoveIgnored {
		return summary, nil
	}
	s.emit(ctx, Event{
		Kind:        EventMoveRejected,
		Meta:        meta,
		SessionUUID: payload.SessionUUID,
		Move:        result.Move,
		Player:      result.Player,
		Reason:      result.Reason,
		State:       state,
	})
	return summary, fmt.Errorf("%w: %v", ErrIllegalMove, result.Reason)
}

// Undo steps back one move. Against the engine it keeps stepping until the
// player is on move again, so an engine reply is taken back with the move it
// answered.
func (s *Service) Undo(ctx context.Context, meta SessionMeta) (*NavigationSummary, error) {
	return s.navigate(ctx, meta, MoveUndone, func(p *sessionPayload, tl *coreloa.Timeline) ([]coreloa.HistoryEntry, error) {
		entry, ok := tl.Undo()
		if !ok {
			return nil, ErrUndoNotAvailable
		}
		walked := []coreloa.HistoryEntry{entry}
		if p.Mode == ModePvB && tl.CurrentPlayer() != HumanSide {
			if entry, ok := tl.Undo(); ok {
				walked = append(walked, entry)
			}
		}
		return walked, nil
	})
}

// Redo steps forward one move; against the engine it also replays the
// engine's recorded answer when there is one.
func (s *Service) Redo(ctx context.Context, meta SessionMeta) (*NavigationSummary, error) {
	return s.navigate(ctx, meta, MoveRedone, func(p *sessionPayload, tl *coreloa.Timeline) ([]coreloa.HistoryEntry, error) {
		entry, ok := tl.Redo()
		if !ok {
			return nil, ErrRedoNotAvailable
		}
		walked := []coreloa.HistoryEntry{entry}
		if p.Mode == ModePvB && tl.CurrentPlayer() != HumanSide {
			if entry, ok := tl.Redo(); ok {
				walked = append(walked, entry)
			}
		}
		return walked, nil
	})
}

func (s *Service) GoToStart(ctx context.Context, meta SessionMeta) (*NavigationSummary, error) {
	return s.navigate(ctx, meta, "", func(_ *sessionPayload, tl *coreloa.Timeline) ([]coreloa.HistoryEntry, error) {
		if !tl.GoToStart() {
			return nil, ErrUndoNotAvailable
		}
		return nil, nil
	})
}

func (s *Service) GoToLast(ctx context.Context, meta SessionMeta) (*NavigationSummary, error) {
	return s.navigate(ctx, meta, "", func(_ *sessionPayload, tl *coreloa.Timeline) ([]coreloa.HistoryEntry, error) {
		if !tl.GoToLast() {
			return nil, ErrRedoNotAvailable
		}
		return nil, nil
	})
}

func (s *Service) navigate(ctx context.Context, meta SessionMeta, kind MoveKind, step func(p *sessionPayload, tl *coreloa.Timeline) ([]coreloa.HistoryEntry, error)) (*NavigationSummary, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)

	var walked []coreloa.HistoryEntry
	payload, tl, err := s.mutate(ctx, identity, func(p *sessionPayload, tl *coreloa.Timeline) error {
		entries, err := step(p, tl)
		walked = entries
		return err
	})
	if errors.Is(err, ErrRedoNotAvailable) {
		s.resumeEngineReply(ctx, meta, identity)
	}
	if err != nil {
		return nil, err
	}

	state := stateFromTimeline(payload, tl)
	if kind != "" {
		for _, e := range walked {
			s.emit(ctx, Event{
				Kind:        EventMoveApplied,
				Meta:        meta,
				SessionUUID: payload.SessionUUID,
				MoveKind:    kind,
				Move:        e.Move,
				Player:      e.Player,
				Capture:     e.Move.Capture,
				Winner:      state.Winner,
				State:       state,
			})
		}
	}
	state.EnginePending = s.scheduleEngineReply(meta, payload, tl)
	s.attachBoardImage(ctx, state, nil)
	return &NavigationSummary{State: state, Entries: walked}, nil
}

// Restart starts a fresh game in the same session, keeping mode and level.
func (s *Service) Restart(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	payload, tl, err := s.mutate(ctx, identity, func(p *sessionPayload, tl *coreloa.Timeline) error {
		tl.Reset()
		p.SessionUUID = uuid.NewString()
		p.Recorded = false
		p.StartedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	state := stateFromTimeline(payload, tl)
	s.attachBoardImage(ctx, state, nil)
	return state, nil
}

// Quit ends the session. An unfinished game against the engine with at least
// one move is recorded as a resignation.
func (s *Service) Quit(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	payload, tl, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	state := stateFromTimeline(payload, tl)
	if payload.Mode == ModePvB && !payload.Recorded && tl.Winner() == coreloa.NoSide && len(payload.Moves) > 0 {
		_, profile, perr := s.persistFinishedGame(ctx, identity, payload, tl, true)
		if perr != nil {
			s.logger.Warn("failed to persist resigned loa game", zap.Error(perr))
		}
		state.Profile = profile
		state.Resigned = true
	}
	if err := s.cache.Del(ctx, sessionKey(identity.SessionID)); err != nil {
		s.logger.Warn("failed to delete loa session", zap.Error(err))
	}
	s.attachBoardImage(ctx, state, nil)
	return state, nil
}

// LegalTargets lists the squares the piece on square can move to.
func (s *Service) LegalTargets(ctx context.Context, meta SessionMeta, square string) (*TargetsResult, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	from, err := coreloa.ParseCoord(square)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	identity := deriveIdentity(meta)
	payload, tl, err := s.load(ctx, identity)
	if err != nil {
		return nil, err
	}
	board := tl.Current()
	side := board.At(from)
	if side == coreloa.NoSide {
		return nil, fmt.Errorf("%w: %w at %s", ErrInvalidMove, coreloa.ErrNoPiece, from)
	}
	targets := coreloa.Destinations(board, from)
	state := stateFromTimeline(payload, tl)
	s.attachBoardImage(ctx, state, &RenderOptions{Selected: &from, Targets: targets})
	return &TargetsResult{State: state, From: from, Side: side, Targets: targets}, nil
}

func (s *Service) History(ctx context.Context, meta SessionMeta, limit int) ([]*domain.LoaGame, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	identity := deriveIdentity(meta)
	return s.repo.GetRecentGames(ctx, identity.PlayerHash, limit)
}

func (s *Service) Game(ctx context.Context, meta SessionMeta, id int64) (*domain.LoaGame, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	game, err := s.repo.GetGame(ctx, id, identity.PlayerHash)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (s *Service) Profile(ctx context.Context, meta SessionMeta) (*domain.LoaProfile, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	return s.fetchProfile(ctx, deriveIdentity(meta), true)
}

func (s *Service) UpdatePreferredLevel(ctx context.Context, meta SessionMeta, level int) (*domain.LoaProfile, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	if _, err := resolveLevel(level); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	now := time.Now()
	if profile == nil {
		profile = &domain.LoaProfile{PlayerHash: identity.PlayerHash, RoomHash: identity.RoomHash, CreatedAt: now}
	}
	profile.PreferredLevel = level
	profile.UpdatedAt = now
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, identity, profile)
	return profile, nil
}

func (s *Service) engineToMove(p *sessionPayload, tl *coreloa.Timeline) bool {
	return p.Mode == ModePvB && tl.Winner() == coreloa.NoSide && tl.CurrentPlayer() == EngineSide
}

// scheduleEngineReply queues the engine's move when it is White's turn in a
// game against the engine, unless this process already queued one for the
// same revision. The reply is dropped if the session changed in the meantime.
// A session left on the engine's turn by a restart or a failed reply gets a
// new reply the next time it is loaded.
func (s *Service) scheduleEngineReply(meta SessionMeta, p *sessionPayload, tl *coreloa.Timeline) bool {
	if !s.engineToMove(p, tl) {
		return false
	}
	key := deriveIdentity(meta).SessionID
	revision := p.Revision

	s.replyMu.Lock()
	if queued, ok := s.replies[key]; ok && queued == revision {
		s.replyMu.Unlock()
		return true
	}
	s.replies[key] = revision
	s.replyMu.Unlock()

	s.hookMu.RLock()
	sch := s.scheduler
	s.hookMu.RUnlock()

	sch.AfterFunc(engine.PresetForLevel(p.Level).ReplyDelay, func() {
		defer s.releaseEngineReply(key, revision)
		ctx, cancel := context.WithTimeout(context.Background(), engineReplyTimeout)
		defer cancel()
		if err := s.playEngineReply(ctx, meta, revision); err != nil {
			s.logger.Warn("loa engine reply failed", zap.Error(err), zap.Int64("revision", revision))
		}
	})
	return true
}

func (s *Service) releaseEngineReply(key string, revision int64) {
	s.replyMu.Lock()
	if queued, ok := s.replies[key]; ok && queued == revision {
		delete(s.replies, key)
	}
	s.replyMu.Unlock()
}

// resumeEngineReply reloads the session and queues the engine's reply if it
// is still owed one.
func (s *Service) resumeEngineReply(ctx context.Context, meta SessionMeta, identity sessionIdentity) {
	payload, tl, err := s.load(ctx, identity)
	if err != nil {
		return
	}
	s.scheduleEngineReply(meta, payload, tl)
}

func (s *Service) playEngineReply(ctx context.Context, meta SessionMeta, revision int64) error {
	identity := deriveIdentity(meta)

	var (
		result    coreloa.MoveResult
		eval      engine.EvaluateResult
		finishing bool
	)
	payload, tl, err := s.mutate(ctx, identity, func(p *sessionPayload, tl *coreloa.Timeline) error {
		if p.Revision != revision || !s.engineToMove(p, tl) {
			return errStaleReply
		}
		var err error
		eval, err = s.engine.Evaluate(ctx, engine.EvaluateRequest{Board: tl.Current(), Side: EngineSide, Level: p.Level})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
		}
		res, err := tl.AttemptMove(eval.Chosen.From, eval.Chosen.To)
		if err != nil {
			return err
		}
		if !res.Accepted() {
			return fmt.Errorf("engine move %s %s: %v", eval.Chosen, res.Status, res.Reason)
		}
		result = res
		if res.Winner != coreloa.NoSide && !p.Recorded {
			p.Recorded = true
			finishing = true
		}
		return nil
	})
	if errors.Is(err, errStaleReply) || errors.Is(err, ErrSessionNotFound) {
		s.logger.Debug("loa engine reply dropped", zap.Int64("revision", revision), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("loa engine move",
		zap.String("session_uuid", payload.SessionUUID),
		zap.String("preset", eval.Preset.Name),
		zap.String("move", result.Move.String()),
		zap.Int("candidates", len(eval.Candidates)),
		zap.Duration("duration", eval.Duration),
	)

	state := stateFromTimeline(payload, tl)
	var gameID int64
	if finishing {
		id, profile, perr := s.persistFinishedGame(ctx, identity, payload, tl, false)
		if perr != nil {
			s.logger.Warn("failed to persist finished loa game", zap.Error(perr), zap.String("session_uuid", payload.SessionUUID))
		}
		gameID = id
		state.Profile = profile
	}
	s.attachBoardImage(ctx, state, nil)
	s.emit(ctx, Event{
		Kind:        EventMoveApplied,
		Meta:        meta,
		SessionUUID: payload.SessionUUID,
		MoveKind:    MovePlayed,
		Move:        result.Move,
		Player:      result.Player,
		Capture:     result.Capture,
		Winner:      result.Winner,
		ByEngine:    true,
		GameID:      gameID,
		State:       state,
	})
	if finishing {
		s.emit(ctx, Event{Kind: EventGameFinished, Meta: meta, SessionUUID: payload.SessionUUID, Winner: result.Winner, ByEngine: true, GameID: gameID, State: state})
	}
	return nil
}

func (s *Service) emit(ctx context.Context, ev Event) {
	s.hookMu.RLock()
	l := s.listener
	s.hookMu.RUnlock()
	if l == nil {
		return
	}
	l.OnEvent(ctx, ev)
}

func (s *Service) load(ctx context.Context, identity sessionIdentity) (*sessionPayload, *coreloa.Timeline, error) {
	payload := &sessionPayload{}
	if err := s.cache.Get(ctx, sessionKey(identity.SessionID), payload); err != nil {
		return nil, nil, err
	}
	if payload.SessionUUID == "" {
		return nil, nil, ErrSessionNotFound
	}
	tl, err := replaySession(payload)
	if err != nil {
		return nil, nil, err
	}
	return payload, tl, nil
}

// mutate loads the session under a Redis WATCH, rebuilds its timeline, runs
// fn and stores the result with a bumped revision. Nothing is written when fn
// fails.
func (s *Service) mutate(ctx context.Context, identity sessionIdentity, fn func(p *sessionPayload, tl *coreloa.Timeline) error) (*sessionPayload, *coreloa.Timeline, error) {
	payload := &sessionPayload{}
	var tl *coreloa.Timeline
	err := s.cache.Update(ctx, sessionKey(identity.SessionID), payload, s.cfg.SessionTTL, func(found bool) (bool, error) {
		if !found || payload.SessionUUID == "" {
			return false, ErrSessionNotFound
		}
		var err error
		if tl, err = replaySession(payload); err != nil {
			return false, err
		}
		if err := fn(payload, tl); err != nil {
			return false, err
		}
		payload.Moves = tl.Notation()
		payload.Pointer = tl.Pointer()
		payload.Revision++
		payload.UpdatedAt = time.Now()
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payload, tl, nil
}

func (s *Service) persistFinishedGame(ctx context.Context, identity sessionIdentity, p *sessionPayload, tl *coreloa.Timeline, resigned bool) (int64, *domain.LoaProfile, error) {
	now := time.Now()
	winner := tl.Winner()
	result := gameResult(p.Mode, winner, resigned)
	if resigned {
		winner = EngineSide
	}
	record := &domain.LoaGame{
		SessionUUID: p.SessionUUID,
		PlayerHash:  identity.PlayerHash,
		RoomHash:    identity.RoomHash,
		Mode:        string(p.Mode),
		Level:       p.Level,
		Winner:      winner.String(),
		Result:      result,
		Moves:       tl.Notation()[:tl.Pointer()],
		FinalBoard:  tl.Current().String(),
		MoveCount:   tl.Pointer(),
		StartedAt:   p.StartedAt,
		EndedAt:     now,
		Duration:    now.Sub(p.StartedAt),
	}
	if p.Mode == ModePvB {
		record.PlayerSide = HumanSide.String()
	}

	gameID, err := s.repo.InsertGame(ctx, record)
	if errors.Is(err, ErrDuplicateGame) {
		existing, fetchErr := s.repo.GetGameBySession(ctx, p.SessionUUID, identity.PlayerHash)
		if fetchErr != nil || existing == nil {
			return 0, nil, err
		}
		profile, _ := s.fetchProfile(ctx, identity, true)
		return existing.ID, profile, nil
	}
	if err != nil {
		return 0, nil, err
	}

	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return gameID, nil, err
	}
	profile = applyGameResult(profile, identity, p.Level, result, now)
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return gameID, nil, err
	}
	s.cacheProfile(ctx, identity, profile)
	s.logger.Info("loa game recorded",
		zap.Int64("game_id", gameID),
		zap.String("session_uuid", p.SessionUUID),
		zap.String("result", result),
		zap.Int("moves", record.MoveCount),
	)
	return gameID, profile, nil
}

func gameResult(mode Mode, winner coreloa.Side, resigned bool) string {
	switch {
	case resigned:
		return "resign"
	case mode == ModePvP:
		return strings.ToLower(winner.String()) + "_won"
	case winner == HumanSide:
		return "win"
	default:
		return "loss"
	}
}

func applyGameResult(profile *domain.LoaProfile, identity sessionIdentity, level int, result string, endedAt time.Time) *domain.LoaProfile {
	if profile == nil {
		profile = &domain.LoaProfile{
			PlayerHash: identity.PlayerHash,
			RoomHash:   identity.RoomHash,
			CreatedAt:  endedAt,
		}
	}
	profile.GamesPlayed++
	profile.LastLevel = level
	profile.LastPlayedAt = endedAt
	profile.UpdatedAt = endedAt

	outcome := ""
	switch result {
	case "win":
		profile.Wins++
		outcome = "win"
	case "loss", "resign":
		profile.Losses++
		outcome = "loss"
	default:
		// hot-seat games count as played only
		return profile
	}
	if profile.StreakType == outcome {
		profile.Streak++
	} else {
		profile.Streak = 1
		profile.StreakType = outcome
	}
	return profile
}

func (s *Service) fetchProfile(ctx context.Context, identity sessionIdentity, allowCache bool) (*domain.LoaProfile, error) {
	if allowCache {
		cached := &domain.LoaProfile{}
		if err := s.cache.Get(ctx, profileCacheKey(identity), cached); err != nil {
			return nil, err
		}
		if cached.PlayerHash != "" {
			return cached, nil
		}
	}
	stored, err := s.repo.GetProfile(ctx, identity.PlayerHash, identity.RoomHash)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrProfileNotFound
	}
	s.cacheProfile(ctx, identity, stored)
	return stored, nil
}

func (s *Service) cacheProfile(ctx context.Context, identity sessionIdentity, profile *domain.LoaProfile) {
	if profile == nil {
		return
	}
	if err := s.cache.Set(ctx, profileCacheKey(identity), profile, profileCacheTTL); err != nil {
		s.logger.Warn("failed to cache loa profile", zap.Error(err))
	}
}

func (s *Service) ensureRoomAllowed(meta SessionMeta) error {
	if len(s.allowedRooms) == 0 {
		return nil
	}
	room := strings.ToLower(strings.TrimSpace(meta.Room))
	if _, ok := s.allowedRooms[room]; ok {
		return nil
	}
	s.logger.Info("loa room access denied",
		zap.String("room", room),
		zap.String("sender", strings.TrimSpace(meta.Sender)),
	)
	return ErrRoomNotAllowed
}

// attachBoardImage renders state into BoardImage. Rendering failures are
// logged and leave the image empty.
func (s *Service) attachBoardImage(ctx context.Context, state *SessionState, extra *RenderOptions) {
	if state == nil || s.renderer == nil {
		return
	}
	opts := RenderOptions{}
	if extra != nil {
		opts = *extra
	}
	if state.LastMove != nil && opts.Selected == nil {
		opts.Highlight = &MoveHighlight{From: state.LastMove.From, To: state.LastMove.To}
	}
	opts.HUDHeader = hudHeader(state)
	opts.HUDTurn = hudTurn(state)

	data, err := s.renderer.RenderPNG(ctx, state.Board, opts)
	if err != nil {
		s.logger.Warn("failed to render loa board image", zap.Error(err))
		return
	}
	state.BoardImage = data
}

func hudHeader(state *SessionState) string {
	player := normalizeHUDPlayerLabel(state.PlayerName)
	if player == "" {
		player = defaultHUDPlayerLabel
	}
	if state.Mode == ModePvP {
		return player + " (hot-seat)"
	}
	return fmt.Sprintf("%s vs Bot (%s)", player, state.Preset)
}

func hudTurn(state *SessionState) string {
	if state.Winner != coreloa.NoSide {
		return sideLabel(state.Winner) + " wins"
	}
	text := fmt.Sprintf("%s - move %d", sideLabel(state.Turn), state.Pointer/2+1)
	if state.CanRedo {
		text += fmt.Sprintf(" (%d/%d)", state.Pointer, state.Length)
	}
	return text
}

func sideLabel(side coreloa.Side) string {
	name := side.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

func resolveLevel(level int) (engine.Preset, error) {
	p, err := engine.GetPreset(strconv.Itoa(level))
	if err != nil {
		return engine.Preset{}, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return p, nil
}

func presetName(level int) string {
	return engine.PresetForLevel(level).Name
}
