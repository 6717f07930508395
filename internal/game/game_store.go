package game

import (
	"context"
	"strings"
	"sync"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// Store persists whole game documents keyed by game code. Load returns
// ErrGameNotFound when no document exists for the code.
type Store interface {
	Load(ctx context.Context, code string) (*models.Game, error)
	Save(ctx context.Context, code string, g *models.Game) error
	Delete(ctx context.Context, code string) error
}

// MemoryStore keeps game documents in process memory. It stores deep copies
// so callers never share state with the store.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*models.Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string]*models.Game),
	}
}

func (s *MemoryStore) Load(_ context.Context, code string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[normalizeCode(code)]
	if !exists {
		return nil, ErrGameNotFound
	}
	return g.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, code string, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[normalizeCode(code)] = g.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, normalizeCode(code))
	return nil
}

// Len returns the number of stored games.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
