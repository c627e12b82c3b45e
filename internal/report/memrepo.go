package report

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-arena/internal/domain"
)

// memrepo keeps logs in process when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64
	byGame map[string]*domain.GameLog
	logs   []*domain.GameLog
}

func NewMemoryRepository() Repository {
	return &memrepo{byGame: make(map[string]*domain.GameLog)}
}

func (m *memrepo) InsertLog(_ context.Context, log *domain.GameLog) (int64, error) {
	if log == nil {
		return 0, ErrDuplicateLog
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byGame[log.GameID]; exists {
		return 0, ErrDuplicateLog
	}

	m.nextID++
	stored := *log
	stored.ID = m.nextID
	stored.Moves = append([]domain.MoveRecord(nil), log.Moves...)

	m.byGame[stored.GameID] = &stored
	m.logs = append(m.logs, &stored)
	return stored.ID, nil
}

func (m *memrepo) RecentLogs(_ context.Context, batchID string, limit int) ([]*domain.GameLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*domain.GameLog, 0, len(m.logs))
	for _, l := range m.logs {
		if batchID == "" || l.BatchID == batchID {
			cp := *l
			items = append(items, &cp)
		}
	}
	// CreatedAt desc, falling back to ID desc
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
