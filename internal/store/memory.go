package store

import (
	"context"
	"slices"
	"sync"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
)

// Memory keeps results in process; used when no database is configured.
type Memory struct {
	mu      sync.Mutex
	results []engine.RoundResult
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SaveResult(_ context.Context, r engine.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Standings = slices.Clone(r.Standings)
	m.results = append(m.results, r)
	return nil
}

func (m *Memory) Results() []engine.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.results)
}

// RecentResults mirrors Store.RecentResults: newest first, at most limit.
func (m *Memory) RecentResults(_ context.Context, roomID string, limit int) ([]engine.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []engine.RoundResult
	for i := len(m.results) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.results[i].RoomID == roomID {
			out = append(out, m.results[i])
		}
	}
	return out, nil
}
