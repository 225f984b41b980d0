package engine

import "github.com/park285/loa-kakao-bot/internal/loa"

const (
	CaptureWeight      = 5
	CenterWeight       = 1
	ConnectivityWeight = 50
)

// LegalMoves enumerates every legal move of side, origins and destinations in
// row-major order. Capture is filled from the board.
func LegalMoves(b loa.Board, side loa.Side) []loa.Move {
	var moves []loa.Move
	for _, from := range b.Pieces(side) {
		for _, to := range loa.Destinations(b, from) {
			moves = append(moves, loa.Move{From: from, To: to, Capture: b.At(to) != loa.NoSide})
		}
	}
	return moves
}

// Score rates b from side's point of view: material, centralisation of own
// pieces, and the number of groups on both sides.
func Score(b loa.Board, side loa.Side) int {
	opp := loa.Opponent(side)
	own, theirs := 0, 0
	center := 0
	for _, c := range b.Pieces(side) {
		own++
		center += centerBonus(c)
	}
	theirs = b.Count(opp)

	score := (own - theirs) * CaptureWeight
	score += center * CenterWeight
	score -= (loa.GroupCount(b, side) - 1) * ConnectivityWeight
	score += (loa.GroupCount(b, opp) - 1) * (ConnectivityWeight / 2)
	return score
}

// centerBonus is 7 minus the Manhattan distance from (3.5, 3.5). The distance
// is always a whole number on an 8x8 board.
func centerBonus(c loa.Coord) int {
	return 7 - (absInt(2*c.Row-7)+absInt(2*c.Col-7))/2
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
