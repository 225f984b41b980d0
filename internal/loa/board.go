package loa

import (
	"fmt"
	"strings"
)

// Size is the edge length of the board.
const Size = 8

// Side identifies the owner of a cell. NoSide marks an empty cell.
type Side uint8

const (
	NoSide Side = iota
	Black
	White
)

func (s Side) String() string {
	switch s {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "none"
	}
}

// Opponent returns the other side. NoSide has no opponent.
func Opponent(s Side) Side {
	switch s {
	case Black:
		return White
	case White:
		return Black
	}
	return NoSide
}

// Board is a position. It is a plain array so assigning it copies the whole
// position; snapshots kept in history never share cells.
type Board [Size * Size]Side

// NewBoard returns the starting position: Black on the inner cells of rows 0
// and 7, White on the inner cells of columns 0 and 7.
func NewBoard() Board {
	var b Board
	for i := 1; i < Size-1; i++ {
		b[index(Coord{Row: 0, Col: i})] = Black
		b[index(Coord{Row: Size - 1, Col: i})] = Black
		b[index(Coord{Row: i, Col: 0})] = White
		b[index(Coord{Row: i, Col: Size - 1})] = White
	}
	return b
}

// At returns the occupant of c. Reading outside the board is a programming
// error and panics instead of reporting an empty cell.
func (b Board) At(c Coord) Side {
	if !c.Valid() {
		panic(fmt.Sprintf("loa: coordinate out of range: (%d,%d)", c.Row, c.Col))
	}
	return b[index(c)]
}

// With returns a copy of b with c set to s.
func (b Board) With(c Coord, s Side) Board {
	if !c.Valid() {
		panic(fmt.Sprintf("loa: coordinate out of range: (%d,%d)", c.Row, c.Col))
	}
	b[index(c)] = s
	return b
}

// Apply moves the piece on m.From to m.To and reports whether the destination
// held a piece before the move. Legality is not checked here.
func (b Board) Apply(m Move) (Board, bool) {
	mover := b.At(m.From)
	capture := b.At(m.To) != NoSide
	next := b.With(m.To, mover)
	next = next.With(m.From, NoSide)
	return next, capture
}

// Count returns the number of pieces owned by s.
func (b Board) Count(s Side) int {
	n := 0
	for _, cell := range b {
		if cell == s {
			n++
		}
	}
	return n
}

// Pieces lists the coordinates of s in row-major order.
func (b Board) Pieces(s Side) []Coord {
	out := make([]Coord, 0, 12)
	for i, cell := range b {
		if cell == s {
			out = append(out, coordOf(i))
		}
	}
	return out
}

// String draws the board with ranks 8..1 top to bottom, 'x' for Black and 'o' for White.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		sb.WriteByte(rankDigits[r])
		sb.WriteByte(' ')
		for c := 0; c < Size; c++ {
			switch b[index(Coord{Row: r, Col: c})] {
			case Black:
				sb.WriteByte('x')
			case White:
				sb.WriteByte('o')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	sb.WriteString(fileLetters)
	return sb.String()
}

func index(c Coord) int { return c.Row*Size + c.Col }

func coordOf(i int) Coord { return Coord{Row: i / Size, Col: i % Size} }
