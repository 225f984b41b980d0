package loa

var neighbourOffsets = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Winner returns the side whose pieces form a single 8-connected group, or
// NoSide. When a move completes both groups at once, lastMover wins.
func Winner(b Board, lastMover Side) Side {
	blackDone := Connected(b, Black)
	whiteDone := Connected(b, White)
	switch {
	case blackDone && whiteDone:
		return lastMover
	case blackDone:
		return Black
	case whiteDone:
		return White
	}
	return NoSide
}

// Connected reports whether every piece of s is reachable from any other
// through 8-directional adjacency. Zero or one piece counts as connected.
func Connected(b Board, s Side) bool {
	pieces := b.Pieces(s)
	if len(pieces) <= 1 {
		return true
	}
	var visited [Size * Size]bool
	return flood(b, s, pieces[0], &visited) == len(pieces)
}

// GroupCount returns the number of connected components formed by s.
func GroupCount(b Board, s Side) int {
	var visited [Size * Size]bool
	groups := 0
	for _, p := range b.Pieces(s) {
		if visited[index(p)] {
			continue
		}
		groups++
		flood(b, s, p, &visited)
	}
	return groups
}

// flood runs a breadth-first search from start and returns how many cells it
// marked.
func flood(b Board, s Side, start Coord, visited *[Size * Size]bool) int {
	queue := []Coord{start}
	visited[index(start)] = true
	seen := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range neighbourOffsets {
			n := Coord{Row: cur.Row + d.Row, Col: cur.Col + d.Col}
			if !n.Valid() || visited[index(n)] || b.At(n) != s {
				continue
			}
			visited[index(n)] = true
			seen++
			queue = append(queue, n)
		}
	}
	return seen
}
