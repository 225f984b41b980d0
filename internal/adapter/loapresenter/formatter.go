package loapresenter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/loa-kakao-bot/internal/engine"
	"github.com/park285/loa-kakao-bot/internal/msgcat"
	"github.com/park285/loa-kakao-bot/pkg/loadto"
)

const (
	modePvB           = "pvb"
	historyDateLayout = "01/02 15:04"
	recentRoundLimit  = 3
)

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders LoA DTOs into Kakao-friendly text blocks through the
// message catalog.
type Formatter struct {
	prefixProvider PrefixProvider
	catalog        *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, catalog *msgcat.Catalog) *Formatter {
	return &Formatter{prefixProvider: provider, catalog: catalog}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

type data map[string]any

func (f *Formatter) render(key string, d data) string {
	if d == nil {
		d = data{}
	}
	if _, ok := d["Prefix"]; !ok {
		d["Prefix"] = f.Prefix()
	}
	return f.catalog.RenderOr(key, d, "")
}

func (f *Formatter) side(name string) string {
	if out := f.render("loa.side."+name, nil); out != "" {
		return out
	}
	return name
}

func (f *Formatter) mode(mode string) string {
	if out := f.render("loa.mode."+mode, nil); out != "" {
		return out
	}
	return mode
}

func formatPreset(name string) string {
	p, err := engine.GetPreset(name)
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Label)
}

// joinLines drops lines that failed to render. An explicit "" is kept as a
// paragraph break unless it would lead, trail or repeat.
func joinLines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if l == "" {
			if len(out) > 0 && out[len(out)-1] != "" && i < len(lines)-1 {
				out = append(out, "")
			}
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func (f *Formatter) Start(state *loadto.SessionState, resumed bool) string {
	if state == nil {
		return f.render("loa.start.failed", nil)
	}
	key := "loa.start.new"
	if resumed {
		key = "loa.start.resumed"
	}
	lines := []string{f.render(key, data{"Mode": f.mode(state.Mode), "Preset": formatPreset(state.Preset)})}
	if state.Mode == modePvB {
		lines = append(lines, f.render("loa.start.side", nil))
	}
	if resumed {
		lines = append(lines, f.statusLines(state)...)
	}
	lines = append(lines, "", f.render("loa.start.usage", nil))
	return joinLines(lines...)
}

func (f *Formatter) statusLines(state *loadto.SessionState) []string {
	lines := []string{f.render("loa.status.body", data{
		"Mode":    f.mode(state.Mode),
		"Preset":  formatPreset(state.Preset),
		"Pointer": state.Pointer,
		"Length":  state.Length,
		"Turn":    f.side(state.Turn),
		"Black":   state.BlackCount,
		"White":   state.WhiteCount,
	})}
	if state.LastMove != "" {
		lines = append(lines, f.render("loa.status.last", data{"Move": state.LastMove}))
	}
	if state.EnginePending {
		lines = append(lines, f.render("loa.status.pending", nil))
	}
	return lines
}

func (f *Formatter) Status(state *loadto.SessionState) string {
	if state == nil {
		return f.Help()
	}
	lines := append([]string{f.render("loa.status.title", nil)}, f.statusLines(state)...)
	if state.Finished() {
		lines = append(lines, f.finishLine(state, ""))
	}
	if recent := recentRounds(state.Rounds, recentRoundLimit); len(recent) > 0 {
		lines = append(lines, "")
		for _, r := range recent {
			lines = append(lines, f.roundLine(r, state.ActiveRound))
		}
	}
	return joinLines(lines...)
}

func recentRounds(rounds []loadto.Round, limit int) []loadto.Round {
	if limit <= 0 || len(rounds) <= limit {
		return rounds
	}
	return rounds[len(rounds)-limit:]
}

func (f *Formatter) roundLine(r loadto.Round, active int) string {
	marker := "  "
	if r.Number == active {
		marker = "▶ "
	}
	line := f.render("loa.moves.round", data{"Marker": marker, "Number": r.Number, "Black": r.Black, "White": r.White})
	return strings.TrimRight(line, " ")
}

// Move describes a submitted move. Ignored inputs produce an empty string.
func (f *Formatter) Move(summary *loadto.MoveSummary) string {
	if summary == nil || summary.State == nil {
		return ""
	}
	switch summary.Status {
	case "illegal":
		return f.Rejected(summary.Move, summary.Reason)
	case "accepted":
	default:
		return ""
	}
	key := "loa.move.played"
	if summary.Capture {
		key = "loa.move.capture"
	}
	lines := []string{f.render(key, data{"Side": f.side(summary.Player), "Move": summary.Move})}
	if summary.Finished {
		lines = append(lines, "", f.finish(summary.State, summary.Profile, summary.GameID, ""))
	}
	return joinLines(lines...)
}

// EngineMove announces the engine reply published after the preset delay.
func (f *Formatter) EngineMove(move string, capture bool, state *loadto.SessionState, gameID int64) string {
	key := "loa.move.engine"
	if capture {
		key = "loa.move.engine_capture"
	}
	lines := []string{f.render(key, data{"Move": move})}
	if state.Finished() {
		lines = append(lines, "", f.finish(state, state.Profile, gameID, ""))
	}
	return joinLines(lines...)
}

func (f *Formatter) Rejected(move, reason string) string {
	if reason == "" {
		reason = "unknown"
	}
	label := f.render("loa.reason."+reason, nil)
	if label == "" {
		label = f.render("loa.reason.unknown", nil)
	}
	return f.render("loa.move.rejected", data{"Move": move, "Reason": label})
}

func (f *Formatter) finishLine(state *loadto.SessionState, result string) string {
	switch {
	case result == "resign":
		return f.render("loa.finish.resign", nil)
	case state.Mode == modePvB && state.Winner == "black":
		return f.render("loa.finish.player_win", nil)
	case state.Mode == modePvB && state.Winner == "white":
		return f.render("loa.finish.player_loss", nil)
	default:
		return f.render("loa.finish.win", data{"Winner": f.side(state.Winner)})
	}
}

func (f *Formatter) finish(state *loadto.SessionState, profile *loadto.LoaProfile, gameID int64, result string) string {
	lines := []string{f.finishLine(state, result)}
	if profile != nil {
		lines = append(lines, f.render("loa.finish.record", data{"Wins": profile.Wins, "Losses": profile.Losses, "Games": profile.GamesPlayed}))
	}
	if gameID > 0 {
		lines = append(lines, f.render("loa.finish.game_id", data{"ID": gameID}))
	}
	return joinLines(lines...)
}

// Navigation reports undo, redo, first and last. kind is one of those words.
func (f *Formatter) Navigation(kind string, nav *loadto.Navigation) string {
	if nav == nil {
		return ""
	}
	var head string
	switch kind {
	case "undo", "redo":
		head = f.render("loa.nav."+kind, data{"Count": len(nav.Moves)})
	case "first", "last":
		head = f.render("loa.nav."+kind, nil)
	}
	lines := []string{head}
	if len(nav.Moves) > 0 && (kind == "undo" || kind == "redo") {
		lines = append(lines, f.render("loa.nav.moves", data{"Moves": strings.Join(nav.Moves, ", ")}))
	}
	if nav.State != nil {
		lines = append(lines, f.statusLines(nav.State)...)
	}
	return joinLines(lines...)
}

// Moves lists every round of the branch with the displayed one marked.
func (f *Formatter) Moves(state *loadto.SessionState) string {
	title := f.render("loa.moves.title", nil)
	if state == nil || len(state.Rounds) == 0 {
		return joinLines(title, f.render("loa.moves.empty", nil))
	}
	lines := make([]string, 0, len(state.Rounds)+1)
	lines = append(lines, title)
	for _, r := range state.Rounds {
		lines = append(lines, f.roundLine(r, state.ActiveRound))
	}
	return seeMoreWithHeader(strings.Join(lines, "\n"), title)
}

func (f *Formatter) Targets(t *loadto.Targets) string {
	if t == nil {
		return ""
	}
	if len(t.Targets) == 0 {
		return f.render("loa.targets.none", data{"From": t.From})
	}
	return f.render("loa.targets.list", data{"From": t.From, "Side": f.side(t.Side), "Targets": strings.Join(t.Targets, " ")})
}

func (f *Formatter) Restart(state *loadto.SessionState) string {
	return joinLines(f.render("loa.restart", nil), f.Start(state, false))
}

// Quit confirms the end of a session; a recorded resignation adds the result.
func (f *Formatter) Quit(state *loadto.SessionState) string {
	lines := []string{}
	if state != nil && state.Resigned {
		lines = append(lines, f.finish(state, state.Profile, 0, "resign"))
	}
	lines = append(lines, f.render("loa.quit", nil))
	return joinLines(lines...)
}

func (f *Formatter) result(code string) string {
	if out := f.render("loa.result."+code, nil); out != "" {
		return out
	}
	return code
}

func (f *Formatter) History(games []*loadto.LoaGame) string {
	title := f.render("loa.history.title", nil)
	if len(games) == 0 {
		return joinLines(title, f.render("loa.history.empty", nil))
	}
	lines := []string{title}
	for _, g := range games {
		lines = append(lines, f.render("loa.history.item", data{
			"ID":     g.ID,
			"Date":   formatDate(g.EndedAt),
			"Mode":   f.mode(g.Mode),
			"Preset": "level" + strconv.Itoa(g.Level),
			"Result": f.result(g.Result),
			"Count":  g.MoveCount,
		}))
	}
	lines = append(lines, "", f.render("loa.history.footer", nil))
	return seeMoreWithHeader(joinLines(lines...), title)
}

func (f *Formatter) Game(g *loadto.LoaGame) string {
	if g == nil {
		return f.render("loa.error.game_not_found", nil)
	}
	head := f.render("loa.game.header", data{
		"ID":       g.ID,
		"Mode":     f.mode(g.Mode),
		"Preset":   "level" + strconv.Itoa(g.Level),
		"Result":   f.result(g.Result),
		"Date":     formatDate(g.EndedAt),
		"Count":    g.MoveCount,
		"Duration": formatDuration(g.Duration),
	})
	var rounds []string
	for i := 0; i < len(g.Moves); i += 2 {
		line := fmt.Sprintf("%d. %s", i/2+1, g.Moves[i])
		if i+1 < len(g.Moves) {
			line += " " + g.Moves[i+1]
		}
		rounds = append(rounds, line)
	}
	if len(rounds) == 0 {
		return head
	}
	firstLine, _, _ := strings.Cut(head, "\n")
	return seeMoreWithHeader(head+"\n\n"+strings.Join(rounds, "\n"), firstLine)
}

func (f *Formatter) Profile(p *loadto.LoaProfile) string {
	title := f.render("loa.profile.title", nil)
	if p == nil {
		return joinLines(title, f.render("loa.error.profile_not_found", nil))
	}
	rate := 0.0
	if decided := p.Wins + p.Losses; decided > 0 {
		rate = float64(p.Wins) * 100 / float64(decided)
	}
	preferred := "-"
	if p.PreferredLevel > 0 {
		preferred = formatPreset(engine.PresetForLevel(p.PreferredLevel).Name)
	}
	lines := []string{title, f.render("loa.profile.body", data{
		"Wins":      p.Wins,
		"Losses":    p.Losses,
		"Games":     p.GamesPlayed,
		"Rate":      strconv.FormatFloat(rate, 'f', 1, 64),
		"Preferred": preferred,
	})}
	if p.Streak > 1 && p.StreakType != "" {
		lines = append(lines, f.render("loa.profile.streak", data{"Streak": p.Streak, "Kind": f.result(p.StreakType)}))
	}
	return joinLines(lines...)
}

func (f *Formatter) PreferredLevelUpdated(p *loadto.LoaProfile) string {
	if p == nil {
		return ""
	}
	return f.render("loa.profile.level_updated", data{"Preset": formatPreset(engine.PresetForLevel(p.PreferredLevel).Name)})
}

func (f *Formatter) Help() string {
	title := f.render("loa.help.title", nil)
	return joinLines(title, f.render("loa.help.body", nil))
}

// Error turns a service error into a user message.
func (f *Formatter) Error(err *loadto.DomainError) string {
	if err == nil {
		return ""
	}
	if out := f.render("loa.error."+err.Code, nil); out != "" {
		return out
	}
	return f.render("loa.error.internal", nil)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyDateLayout)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if m == 0 {
		return fmt.Sprintf("%d초", s)
	}
	return fmt.Sprintf("%d분 %d초", m, s)
}
