package loa

import (
	"fmt"
	"strings"
)

const (
	fileLetters = "ABCDEFGH"
	rankDigits  = "87654321"
)

// Coord addresses a cell. Row 0 is rank 8, column 0 is file A.
type Coord struct {
	Row int
	Col int
}

func (c Coord) Valid() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// String returns the square name, e.g. (0,0) -> "A8".
func (c Coord) String() string {
	if !c.Valid() {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return string([]byte{fileLetters[c.Col], rankDigits[c.Row]})
}

// ParseCoord reads a square name such as "c6" or "C6".
func ParseCoord(raw string) (Coord, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 2 {
		return Coord{}, fmt.Errorf("invalid square %q", raw)
	}
	col := strings.IndexByte(fileLetters, s[0])
	row := strings.IndexByte(rankDigits, s[1])
	if col < 0 || row < 0 {
		return Coord{}, fmt.Errorf("invalid square %q", raw)
	}
	return Coord{Row: row, Col: col}, nil
}

// Move is a from/to pair. Capture is set once the move has been applied (or
// generated) against a board where the destination held an opposing piece.
type Move struct {
	From    Coord
	To      Coord
	Capture bool
}

// String returns the "<from>:<to>" form, e.g. "A8:C8".
func (m Move) String() string {
	return m.From.String() + ":" + m.To.String()
}

// ParseMove accepts "A8:C8", "A8C8", "a8-c8" and "A8 C8".
func ParseMove(raw string) (Move, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(":", "", "-", "", " ", "", "\t", "").Replace(s)
	if len(s) != 4 {
		return Move{}, fmt.Errorf("invalid move %q", raw)
	}
	from, err := ParseCoord(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", raw, err)
	}
	to, err := ParseCoord(s[2:])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", raw, err)
	}
	return Move{From: from, To: to}, nil
}
