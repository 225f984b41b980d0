package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Preset describes one difficulty level offered to players.
type Preset struct {
	Name     string
	Level    int
	Label    string
	Strategy Strategy
	// ReplyDelay is how long a host waits before playing the engine's move
	// so the turn change can be shown first.
	ReplyDelay time.Duration
}

const defaultReplyDelay = time.Second

var presetMu sync.RWMutex

var DefaultPresets = map[string]Preset{
	"level1": {Name: "level1", Level: 1, Label: "입문", Strategy: StrategyRandom, ReplyDelay: defaultReplyDelay},
	"level2": {Name: "level2", Level: 2, Label: "보통", Strategy: StrategyGreedy, ReplyDelay: defaultReplyDelay},
	"level3": {Name: "level3", Level: 3, Label: "공격형", Strategy: StrategyMoveScore, ReplyDelay: defaultReplyDelay},
}

// GetPreset looks a preset up by name. "easy", "normal" and bare digits are
// accepted as aliases.
func GetPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "easy", "random":
		key = "level1"
	case "normal", "greedy":
		key = "level2"
	case "hard", "aggressive":
		key = "level3"
	}
	if n, err := strconv.Atoi(key); err == nil {
		key = fmt.Sprintf("level%d", n)
	}
	presetMu.RLock()
	p, ok := DefaultPresets[key]
	presetMu.RUnlock()
	if !ok {
		return Preset{}, fmt.Errorf("unknown loa preset: %s", name)
	}
	if err := ValidatePreset(p); err != nil {
		return Preset{}, fmt.Errorf("loa preset %s: %w", key, err)
	}
	return p, nil
}

// PresetForLevel returns the preset of level; unknown levels get level1, in
// line with ResolveStrategy.
func PresetForLevel(level int) Preset {
	if p, err := GetPreset(fmt.Sprintf("level%d", level)); err == nil {
		return p
	}
	p, _ := GetPreset("level1")
	return p
}

// PresetNames lists the preset names sorted by level.
func PresetNames() []string {
	presetMu.RLock()
	list := make([]Preset, 0, len(DefaultPresets))
	for _, p := range DefaultPresets {
		list = append(list, p)
	}
	presetMu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Level < list[j].Level })
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}

// SetReplyDelay overrides the reply delay of every preset. Nothing changes
// when the result would not validate.
func SetReplyDelay(d time.Duration) error {
	presetMu.Lock()
	defer presetMu.Unlock()
	updated := make(map[string]Preset, len(DefaultPresets))
	for name, p := range DefaultPresets {
		p.ReplyDelay = d
		if err := ValidatePreset(p); err != nil {
			return fmt.Errorf("set reply delay: %w", err)
		}
		updated[name] = p
	}
	for name, p := range updated {
		DefaultPresets[name] = p
	}
	return nil
}

func ValidatePreset(p Preset) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("preset name must not be empty")
	case p.Level <= 0:
		return fmt.Errorf("level must be > 0: %d", p.Level)
	case p.Strategy < StrategyRandom || p.Strategy > StrategyMoveScore:
		return fmt.Errorf("unknown strategy %d for preset %s", p.Strategy, p.Name)
	case p.ReplyDelay < 0:
		return fmt.Errorf("reply delay must be >= 0: %s", p.ReplyDelay)
	}
	return nil
}
