package loa

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/loa-kakao-bot/internal/domain"
)

// memrepo keeps games and profiles in process, for runs without DATABASE_URL
// and for tests.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID    map[int64]*domain.LoaGame
	gamesByUser  map[string][]*domain.LoaGame
	gamesByIndex map[string]*domain.LoaGame // sessionUUID|playerHash

	profiles map[string]*domain.LoaProfile // playerHash|roomHash
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:    make(map[int64]*domain.LoaGame),
		gamesByUser:  make(map[string][]*domain.LoaGame),
		gamesByIndex: make(map[string]*domain.LoaGame),
		profiles:     make(map[string]*domain.LoaProfile),
	}
}

func (m *memrepo) InsertGame(_ context.Context, game *domain.LoaGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := m.sessionKey(game.SessionUUID, game.PlayerHash)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByIndex[key]; exists {
		return 0, ErrDuplicateGame
	}
	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID

	m.gamesByID[stored.ID] = stored
	m.gamesByIndex[key] = stored
	m.gamesByUser[game.PlayerHash] = append(m.gamesByUser[game.PlayerHash], stored)
	return stored.ID, nil
}

func (m *memrepo) GetRecentGames(_ context.Context, playerHash string, limit int) ([]*domain.LoaGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.LoaGame, 0, len(m.gamesByUser[playerHash]))
	for _, g := range m.gamesByUser[playerHash] {
		items = append(items, cloneGame(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetGame(_ context.Context, id int64, playerHash string) (*domain.LoaGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gamesByID[id]
	if !ok || g.PlayerHash != playerHash {
		return nil, nil
	}
	return cloneGame(g), nil
}

func (m *memrepo) GetGameBySession(_ context.Context, sessionUUID string, playerHash string) (*domain.LoaGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gamesByIndex[m.sessionKey(sessionUUID, playerHash)]; ok {
		return cloneGame(g), nil
	}
	return nil, nil
}

func (m *memrepo) GetProfile(_ context.Context, playerHash string, roomHash string) (*domain.LoaProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[m.profileKey(playerHash, roomHash)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(_ context.Context, profile *domain.LoaProfile) error {
	if profile == nil {
		return nil
	}
	cp := *profile
	m.mu.Lock()
	m.profiles[m.profileKey(profile.PlayerHash, profile.RoomHash)] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) sessionKey(sessionUUID, playerHash string) string {
	return strings.TrimSpace(sessionUUID) + "|" + strings.TrimSpace(playerHash)
}

func (m *memrepo) profileKey(playerHash, roomHash string) string {
	return strings.TrimSpace(playerHash) + "|" + strings.TrimSpace(roomHash)
}

func cloneGame(g *domain.LoaGame) *domain.LoaGame {
	cp := *g
	cp.Moves = append([]string(nil), g.Moves...)
	return &cp
}
