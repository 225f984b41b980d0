package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/loa-kakao-bot/internal/loa"
)

var ErrNoLegalMove = errors.New("no legal move available")

// Engine is the move picker shared by all sessions. Each call draws its own
// random source from a seeded master so callers may run concurrently.
type Engine struct {
	randMu sync.Mutex
	rand   *rand.Rand
}

func NewEngine(seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{rand: rand.New(rand.NewSource(seed))}
}

type EvaluateRequest struct {
	Board  loa.Board
	Side   loa.Side
	Preset string
	Level  int
}

type EvaluateResult struct {
	Preset     Preset
	Duration   time.Duration
	Candidates []ScoredMove
	Chosen     loa.Move
}

// FindBestMove picks a move for side at level, or false when side cannot move.
func (e *Engine) FindBestMove(b loa.Board, side loa.Side, level int) (loa.Move, bool) {
	return FindBestMove(b, side, level, e.random())
}

// Evaluate rates all candidates with the preset's strategy and picks one.
// Preset wins over Level when both are set.
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	start := time.Now()
	preset := PresetForLevel(req.Level)
	if req.Preset != "" {
		p, err := GetPreset(req.Preset)
		if err != nil {
			return EvaluateResult{}, err
		}
		preset = p
	}
	if err := ctx.Err(); err != nil {
		return EvaluateResult{}, err
	}

	moves := LegalMoves(req.Board, req.Side)
	if len(moves) == 0 {
		return EvaluateResult{Preset: preset, Duration: time.Since(start)}, ErrNoLegalMove
	}
	candidates := preset.Strategy.Rate(req.Board, req.Side, moves)
	best := bestOf(candidates)
	chosen := best[e.random().Intn(len(best))].Move

	return EvaluateResult{
		Preset:     preset,
		Duration:   time.Since(start),
		Candidates: candidates,
		Chosen:     chosen,
	}, nil
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}
