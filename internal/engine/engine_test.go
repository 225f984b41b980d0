package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/park285/loa-kakao-bot/internal/loa"
)

func containsMove(moves []loa.Move, m loa.Move) bool {
	for _, x := range moves {
		if x.From == m.From && x.To == m.To {
			return true
		}
	}
	return false
}

func TestScoreStartPosition(t *testing.T) {
	b := loa.NewBoard()
	// material 0, centre 24, own groups 2, opponent groups 2
	if got := Score(b, loa.Black); got != -1 {
		t.Fatalf("Score(start, Black)=%d, want -1", got)
	}
	if got := Score(b, loa.White); got != -1 {
		t.Fatalf("Score(start, White)=%d, want -1", got)
	}
}

func TestCenterBonus(t *testing.T) {
	cases := map[loa.Coord]int{
		{Row: 0, Col: 0}: 0,
		{Row: 3, Col: 3}: 6,
		{Row: 4, Col: 4}: 6,
		{Row: 0, Col: 3}: 3,
		{Row: 7, Col: 7}: 0,
	}
	for c, want := range cases {
		if got := centerBonus(c); got != want {
			t.Fatalf("centerBonus(%s)=%d, want %d", c, got, want)
		}
	}
}

func TestLegalMovesStartPosition(t *testing.T) {
	b := loa.NewBoard()
	moves := LegalMoves(b, loa.Black)
	if len(moves) == 0 {
		t.Fatalf("expected moves from the start position")
	}
	for _, m := range moves {
		if !loa.IsLegal(b, m.From, m.To) {
			t.Fatalf("LegalMoves returned illegal %s", m)
		}
		if b.At(m.From) != loa.Black {
			t.Fatalf("move %s does not start on a black piece", m)
		}
	}
	if !containsMove(moves, loa.Move{From: loa.Coord{Row: 0, Col: 1}, To: loa.Coord{Row: 2, Col: 1}}) {
		t.Fatalf("B8:B6 missing")
	}
}

func TestFindBestMoveNoPieces(t *testing.T) {
	var b loa.Board
	b = b.With(loa.Coord{Row: 0, Col: 0}, loa.White)
	for level := 0; level <= 4; level++ {
		if _, ok := FindBestMove(b, loa.Black, level, rand.New(rand.NewSource(1))); ok {
			t.Fatalf("level %d: expected no move for a side without pieces", level)
		}
	}
}

func TestFindBestMoveAlwaysLegal(t *testing.T) {
	b := loa.NewBoard()
	legal := LegalMoves(b, loa.White)
	for level := -1; level <= 5; level++ {
		for seed := int64(1); seed <= 20; seed++ {
			m, ok := FindBestMove(b, loa.White, level, rand.New(rand.NewSource(seed)))
			if !ok {
				t.Fatalf("level %d seed %d: no move", level, seed)
			}
			if !containsMove(legal, m) {
				t.Fatalf("level %d seed %d: %s is not legal", level, seed, m)
			}
		}
	}
}

func TestResolveStrategyFallsBackToRandom(t *testing.T) {
	for _, level := range []int{-3, 0, 1, 4, 99} {
		if s := ResolveStrategy(level); s != StrategyRandom {
			t.Fatalf("level %d resolved to %s", level, s)
		}
	}
	if ResolveStrategy(2) != StrategyGreedy || ResolveStrategy(3) != StrategyMoveScore {
		t.Fatalf("levels 2 and 3 must have their own strategies")
	}
}

func TestGreedyPicksMaximalScore(t *testing.T) {
	b := loa.NewBoard()
	moves := LegalMoves(b, loa.Black)
	rated := StrategyGreedy.Rate(b, loa.Black, moves)
	best := rated[0].Score
	for _, sm := range rated {
		if sm.Score > best {
			best = sm.Score
		}
	}
	for seed := int64(1); seed <= 10; seed++ {
		m, _ := FindBestMove(b, loa.Black, 2, rand.New(rand.NewSource(seed)))
		next, _ := b.Apply(m)
		if got := Score(next, loa.Black); got != best {
			t.Fatalf("seed %d: greedy chose %s scoring %d, best is %d", seed, m, got, best)
		}
	}
}

func TestGreedyTakesTheWinningMerge(t *testing.T) {
	// Black: two pieces one step from joining; the third piece is far away.
	b := loa.Board{}
	b = b.With(loa.Coord{Row: 3, Col: 3}, loa.Black)
	b = b.With(loa.Coord{Row: 3, Col: 5}, loa.Black)
	b = b.With(loa.Coord{Row: 7, Col: 0}, loa.White)

	m, ok := FindBestMove(b, loa.Black, 2, rand.New(rand.NewSource(7)))
	if !ok {
		t.Fatalf("expected a move")
	}
	next, _ := b.Apply(m)
	if !loa.Connected(next, loa.Black) {
		t.Fatalf("greedy move %s leaves black split", m)
	}
}

func TestMoveScoreRewardsCapture(t *testing.T) {
	b := loa.Board{}
	b = b.With(loa.Coord{Row: 0, Col: 0}, loa.Black)
	b = b.With(loa.Coord{Row: 0, Col: 2}, loa.White)

	capture := loa.Move{From: loa.Coord{Row: 0, Col: 0}, To: loa.Coord{Row: 0, Col: 2}}
	rated := StrategyMoveScore.Rate(b, loa.Black, []loa.Move{capture})
	if want := CaptureWeight + centerBonus(capture.To); rated[0].Score != want {
		t.Fatalf("capture scored %d, want %d", rated[0].Score, want)
	}
	m, ok := FindBestMove(b, loa.Black, 3, rand.New(rand.NewSource(1)))
	if !ok || m.From != capture.From || m.To != capture.To {
		t.Fatalf("level 3 chose %s, want %s", m, capture)
	}
}

func TestMoveScoreRewardsMerge(t *testing.T) {
	b := loa.Board{}
	b = b.With(loa.Coord{Row: 3, Col: 3}, loa.Black)
	b = b.With(loa.Coord{Row: 3, Col: 5}, loa.Black)
	b = b.With(loa.Coord{Row: 7, Col: 0}, loa.White)

	merge := loa.Move{From: loa.Coord{Row: 3, Col: 5}, To: loa.Coord{Row: 4, Col: 4}}
	rated := StrategyMoveScore.Rate(b, loa.Black, []loa.Move{merge})
	if want := ConnectivityWeight + centerBonus(merge.To); rated[0].Score != want {
		t.Fatalf("merge scored %d, want %d", rated[0].Score, want)
	}
}

func TestEngineSeedIsDeterministic(t *testing.T) {
	b := loa.NewBoard()
	a := NewEngine(42)
	c := NewEngine(42)
	for i := 0; i < 5; i++ {
		m1, _ := a.FindBestMove(b, loa.Black, 1)
		m2, _ := c.FindBestMove(b, loa.Black, 1)
		if m1 != m2 {
			t.Fatalf("draw %d differs: %s vs %s", i, m1, m2)
		}
	}
}

func TestEvaluate(t *testing.T) {
	e := NewEngine(3)
	b := loa.NewBoard()
	res, err := e.Evaluate(context.Background(), EvaluateRequest{Board: b, Side: loa.Black, Level: 2})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Preset.Name != "level2" {
		t.Fatalf("preset=%s", res.Preset.Name)
	}
	if len(res.Candidates) != len(LegalMoves(b, loa.Black)) {
		t.Fatalf("candidates=%d", len(res.Candidates))
	}
	if !loa.IsLegal(b, res.Chosen.From, res.Chosen.To) {
		t.Fatalf("chosen %s is illegal", res.Chosen)
	}

	if _, err := e.Evaluate(context.Background(), EvaluateRequest{Board: loa.Board{}, Side: loa.Black, Level: 1}); !errors.Is(err, ErrNoLegalMove) {
		t.Fatalf("expected ErrNoLegalMove, got %v", err)
	}
	if _, err := e.Evaluate(context.Background(), EvaluateRequest{Board: b, Side: loa.Black, Preset: "nope"}); err == nil {
		t.Fatalf("expected unknown preset error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evaluate(ctx, EvaluateRequest{Board: b, Side: loa.Black}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPresets(t *testing.T) {
	for _, name := range []string{"level1", "2", "hard", " Normal "} {
		p, err := GetPreset(name)
		if err != nil {
			t.Fatalf("GetPreset(%q): %v", name, err)
		}
		if err := ValidatePreset(p); err != nil {
			t.Fatalf("ValidatePreset(%s): %v", p.Name, err)
		}
	}
	if p := PresetForLevel(9); p.Name != "level1" {
		t.Fatalf("PresetForLevel(9)=%s", p.Name)
	}
	if names := PresetNames(); len(names) != 3 || names[0] != "level1" || names[2] != "level3" {
		t.Fatalf("PresetNames=%v", names)
	}
	if err := ValidatePreset(Preset{Name: "x", Level: 1}); err == nil {
		t.Fatalf("expected strategy error")
	}
}

func TestSetReplyDelayValidates(t *testing.T) {
	before := PresetForLevel(2).ReplyDelay
	t.Cleanup(func() { _ = SetReplyDelay(before) })

	if err := SetReplyDelay(-time.Millisecond); err == nil {
		t.Fatalf("expected error for negative delay")
	}
	if got := PresetForLevel(2).ReplyDelay; got != before {
		t.Fatalf("rejected delay applied: %s", got)
	}
	if err := SetReplyDelay(250 * time.Millisecond); err != nil {
		t.Fatalf("SetReplyDelay: %v", err)
	}
	for _, name := range PresetNames() {
		p, err := GetPreset(name)
		if err != nil {
			t.Fatalf("GetPreset(%s): %v", name, err)
		}
		if p.ReplyDelay != 250*time.Millisecond {
			t.Fatalf("%s delay=%s", name, p.ReplyDelay)
		}
	}
}

func TestGetPresetRejectsInvalidEntry(t *testing.T) {
	presetMu.Lock()
	saved := DefaultPresets["level3"]
	broken := saved
	broken.Strategy = Strategy(42)
	DefaultPresets["level3"] = broken
	presetMu.Unlock()
	t.Cleanup(func() {
		presetMu.Lock()
		DefaultPresets["level3"] = saved
		presetMu.Unlock()
	})

	if _, err := GetPreset("level3"); err == nil {
		t.Fatalf("expected validation error")
	}
}
