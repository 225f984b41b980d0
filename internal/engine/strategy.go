package engine

import (
	"math/rand"

	"github.com/park285/loa-kakao-bot/internal/loa"
)

// Strategy is the closed set of move pickers.
type Strategy int

const (
	// StrategyRandom picks uniformly among legal moves.
	StrategyRandom Strategy = iota + 1
	// StrategyGreedy scores the position after each move with Score and picks
	// among the best.
	StrategyGreedy
	// StrategyMoveScore rates the move itself: capture, group merge and the
	// centralisation of the destination.
	StrategyMoveScore
)

func (s Strategy) String() string {
	switch s {
	case StrategyGreedy:
		return "greedy"
	case StrategyMoveScore:
		return "move-score"
	default:
		return "random"
	}
}

// ResolveStrategy maps a difficulty level to its strategy. Levels without a
// strategy of their own play randomly; this is the documented baseline, not an
// error path.
func ResolveStrategy(level int) Strategy {
	switch level {
	case 2:
		return StrategyGreedy
	case 3:
		return StrategyMoveScore
	default:
		return StrategyRandom
	}
}

// ScoredMove is a legal move and the value its strategy gave it.
type ScoredMove struct {
	Move  loa.Move
	Score int
}

// FindBestMove returns a move for side at the given level, or false when side
// has no legal move.
func FindBestMove(b loa.Board, side loa.Side, level int, r *rand.Rand) (loa.Move, bool) {
	return ResolveStrategy(level).Pick(b, side, r)
}

// Pick chooses a move with strategy s. Ties are broken with r.
func (s Strategy) Pick(b loa.Board, side loa.Side, r *rand.Rand) (loa.Move, bool) {
	moves := LegalMoves(b, side)
	if len(moves) == 0 {
		return loa.Move{}, false
	}
	if s == StrategyRandom {
		return moves[r.Intn(len(moves))], true
	}
	best := bestOf(s.Rate(b, side, moves))
	return best[r.Intn(len(best))].Move, true
}

// Rate scores every move with strategy s. Random rates every move 0.
func (s Strategy) Rate(b loa.Board, side loa.Side, moves []loa.Move) []ScoredMove {
	scored := make([]ScoredMove, len(moves))
	groupsBefore := 0
	if s == StrategyMoveScore {
		groupsBefore = loa.GroupCount(b, side)
	}
	for i, m := range moves {
		scored[i].Move = m
		switch s {
		case StrategyGreedy:
			next, _ := b.Apply(m)
			scored[i].Score = Score(next, side)
		case StrategyMoveScore:
			scored[i].Score = rateMove(b, side, m, groupsBefore)
		}
	}
	return scored
}

func rateMove(b loa.Board, side loa.Side, m loa.Move, groupsBefore int) int {
	score := 0
	if b.At(m.To) != loa.NoSide {
		score += CaptureWeight
	}
	next, _ := b.Apply(m)
	if loa.GroupCount(next, side) < groupsBefore {
		score += ConnectivityWeight
	}
	score += centerBonus(m.To) * CenterWeight
	return score
}

// bestOf keeps the moves sharing the maximum score, in input order.
func bestOf(scored []ScoredMove) []ScoredMove {
	var best []ScoredMove
	for _, sm := range scored {
		switch {
		case len(best) == 0 || sm.Score > best[0].Score:
			best = append(best[:0], sm)
		case sm.Score == best[0].Score:
			best = append(best, sm)
		}
	}
	return best
}
