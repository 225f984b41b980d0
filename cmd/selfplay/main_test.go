package main

import (
	"testing"

	"github.com/park285/loa-kakao-bot/internal/engine"
	"github.com/park285/loa-kakao-bot/internal/loa"
)

func TestPlayMatchIsDeterministicPerSeed(t *testing.T) {
	a := playMatch(engine.NewEngine(11), 2, 1, 200)
	b := playMatch(engine.NewEngine(11), 2, 1, 200)
	if a != b {
		t.Fatalf("same seed gave different games: %+v vs %+v", a, b)
	}
	if a.Plies <= 0 || a.Plies > 200 {
		t.Fatalf("plies = %d", a.Plies)
	}
	if a.Winner == loa.NoSide && a.Plies < 200 && !a.Stuck {
		t.Fatalf("game ended early without a winner: %+v", a)
	}
}

func TestPlayMatchRespectsPlyLimit(t *testing.T) {
	r := playMatch(engine.NewEngine(3), 1, 1, 4)
	if r.Plies > 4 {
		t.Fatalf("plies = %d, limit 4", r.Plies)
	}
}

func TestTally(t *testing.T) {
	var tl tally
	tl.add(matchResult{Winner: loa.Black, Plies: 10})
	tl.add(matchResult{Winner: loa.White, Plies: 20})
	tl.add(matchResult{Plies: 30, Stuck: true})
	if tl.Black != 1 || tl.White != 1 || tl.Unfinished != 1 || tl.Plies != 60 {
		t.Fatalf("tally = %+v", tl)
	}
}
