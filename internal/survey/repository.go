package survey

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository contains the DB interactions for survey submissions.
type Repository interface {
	Insert(ctx context.Context, s *Survey) error
	ExistsForDay(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Survey, error)
}

// MemoryRepository stores surveys in memory, for tests and local
// development without Postgres.
type MemoryRepository struct {
	mu      sync.Mutex
	surveys []Survey
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(_ context.Context, s *Survey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := *s
	record.CreatedAt = time.Now()
	m.surveys = append(m.surveys, record)
	return nil
}

func (m *MemoryRepository) ExistsForDay(_ context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.surveys {
		if s.UserID == userID && s.Day.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Survey
	for _, s := range m.surveys {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day.After(result[j].Day) })
	return result, nil
}
