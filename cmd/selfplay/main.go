// Command selfplay pits two engine levels against each other and logs the
// results, e.g. to check that level 3 beats level 1.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/park285/loa-kakao-bot/internal/engine"
	"github.com/park285/loa-kakao-bot/internal/loa"
	"github.com/park285/loa-kakao-bot/internal/obslog"
	"go.uber.org/zap"
)

type matchResult struct {
	Winner loa.Side
	Plies  int
	// Stuck is set when the side to move had no legal move.
	Stuck bool
}

// playMatch plays one game from the standard position. A game that reaches
// maxPlies ends without a winner.
func playMatch(eng *engine.Engine, blackLevel, whiteLevel, maxPlies int) matchResult {
	tl := loa.NewTimeline()
	for tl.Pointer() < maxPlies {
		if w := tl.Winner(); w != loa.NoSide {
			return matchResult{Winner: w, Plies: tl.Pointer()}
		}
		side := tl.CurrentPlayer()
		level := blackLevel
		if side == loa.White {
			level = whiteLevel
		}
		mv, ok := eng.FindBestMove(tl.Current(), side, level)
		if !ok {
			return matchResult{Plies: tl.Pointer(), Stuck: true}
		}
		res, err := tl.AttemptMove(mv.From, mv.To)
		if err != nil || !res.Accepted() {
			return matchResult{Plies: tl.Pointer(), Stuck: true}
		}
	}
	return matchResult{Winner: tl.Winner(), Plies: tl.Pointer()}
}

type tally struct {
	Black, White, Unfinished int
	Plies                    int
}

func (t *tally) add(r matchResult) {
	t.Plies += r.Plies
	switch r.Winner {
	case loa.Black:
		t.Black++
	case loa.White:
		t.White++
	default:
		t.Unfinished++
	}
}

func main() {
	games := flag.Int("games", 20, "number of games")
	black := flag.Int("black", 3, "engine level for black (1-3)")
	white := flag.Int("white", 1, "engine level for white (1-3)")
	seed := flag.Int64("seed", 1, "random seed, 0 for time based")
	maxPlies := flag.Int("max-plies", 300, "plies before a game is abandoned")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	for _, lvl := range []int{*black, *white} {
		if engine.PresetForLevel(lvl).Level != lvl {
			logger.Fatal("unknown level", zap.Int("level", lvl))
		}
	}

	eng := engine.NewEngine(*seed)
	var t tally
	start := time.Now()
	for i := 1; i <= *games; i++ {
		r := playMatch(eng, *black, *white, *maxPlies)
		t.add(r)
		logger.Info("selfplay_game",
			zap.Int("game", i),
			zap.String("winner", r.Winner.String()),
			zap.Int("plies", r.Plies),
			zap.Bool("stuck", r.Stuck),
		)
	}
	avg := 0.0
	if *games > 0 {
		avg = float64(t.Plies) / float64(*games)
	}
	logger.Info("selfplay_summary",
		zap.Int("black_level", *black),
		zap.Int("white_level", *white),
		zap.Int("black_wins", t.Black),
		zap.Int("white_wins", t.White),
		zap.Int("unfinished", t.Unfinished),
		zap.Float64("avg_plies", avg),
		zap.Duration("elapsed", time.Since(start)),
	)
}
