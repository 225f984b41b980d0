package loa

import "errors"

var (
	ErrOutOfRange       = errors.New("coordinate out of range")
	ErrSameSquare       = errors.New("origin and destination are the same square")
	ErrNoPiece          = errors.New("no piece on origin square")
	ErrNotALine         = errors.New("move is not horizontal, vertical or diagonal")
	ErrDistanceMismatch = errors.New("distance does not match pieces on the line")
	ErrPathBlocked      = errors.New("path crosses an opposing piece")
	ErrOwnPiece         = errors.New("destination holds a piece of the same side")
	ErrNotYourPiece     = errors.New("piece belongs to the side not on move")
)

// ValidateMove reports why moving the piece on from to to is illegal, or nil
// when the move is legal. A piece travels exactly as many squares as there are
// pieces (either side, itself included) on the whole line through from and to.
func ValidateMove(b Board, from, to Coord) error {
	if !from.Valid() || !to.Valid() {
		return ErrOutOfRange
	}
	if from == to {
		return ErrSameSquare
	}
	mover := b.At(from)
	if mover == NoSide {
		return ErrNoPiece
	}

	dr, dc := to.Row-from.Row, to.Col-from.Col
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return ErrNotALine
	}
	distance := max(abs(dr), abs(dc))
	if distance != piecesOnLine(b, from, sign(dr), sign(dc)) {
		return ErrDistanceMismatch
	}

	step := Coord{Row: sign(dr), Col: sign(dc)}
	for i := 1; i < distance; i++ {
		c := Coord{Row: from.Row + step.Row*i, Col: from.Col + step.Col*i}
		if occupant := b.At(c); occupant != NoSide && occupant != mover {
			return ErrPathBlocked
		}
	}

	if b.At(to) == mover {
		return ErrOwnPiece
	}
	return nil
}

// IsLegal is ValidateMove without the reason.
func IsLegal(b Board, from, to Coord) bool {
	return ValidateMove(b, from, to) == nil
}

// Destinations lists, in row-major order, every square the piece on from can
// legally reach. An empty origin yields nil; an out-of-range one panics like
// Board.At.
func Destinations(b Board, from Coord) []Coord {
	if b.At(from) == NoSide {
		return nil
	}
	var out []Coord
	for i := range b {
		to := coordOf(i)
		if IsLegal(b, from, to) {
			out = append(out, to)
		}
	}
	return out
}

// piecesOnLine counts occupied cells on the full line through from with the
// given direction, scanning to both board edges. from itself counts once.
func piecesOnLine(b Board, from Coord, dr, dc int) int {
	count := 0
	for c := from; c.Valid(); c = (Coord{Row: c.Row - dr, Col: c.Col - dc}) {
		if b.At(c) != NoSide {
			count++
		}
	}
	for c := (Coord{Row: from.Row + dr, Col: from.Col + dc}); c.Valid(); c = (Coord{Row: c.Row + dr, Col: c.Col + dc}) {
		if b.At(c) != NoSide {
			count++
		}
	}
	return count
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
