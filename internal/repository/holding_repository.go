package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"portfolio-backend/internal/domain"
)

// InMemoryHoldingRepository stores holdings in memory, for development and
// tests.
type InMemoryHoldingRepository struct {
	mu       sync.RWMutex
	holdings map[string]domain.Holding // id -> holding
	subs     *subscribers
}

func NewInMemoryHoldingRepository() *InMemoryHoldingRepository {
	return &InMemoryHoldingRepository{
		holdings: make(map[string]domain.Holding),
		subs:     newSubscribers(),
	}
}

// ListHoldings returns the user's holdings ordered by the time they were added.
func (r *InMemoryHoldingRepository) ListHoldings(_ context.Context, userID string) ([]domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Holding, 0)
	for _, h := range r.holdings {
		if h.UserID == userID {
			result = append(result, h)
		}
	}
	sortHoldings(result)
	return result, nil
}

func (r *InMemoryHoldingRepository) AddHolding(_ context.Context, h domain.Holding) (domain.Holding, error) {
	r.mu.Lock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	r.holdings[h.ID] = h
	r.mu.Unlock()

	r.subs.notify(h.UserID)
	return h, nil
}

func (r *InMemoryHoldingRepository) DeleteHolding(_ context.Context, userID, id string) error {
	r.mu.Lock()
	h, exists := r.holdings[id]
	if !exists || h.UserID != userID {
		r.mu.Unlock()
		return domain.ErrHoldingNotFound
	}
	delete(r.holdings, id)
	r.mu.Unlock()

	r.subs.notify(userID)
	return nil
}

func (r *InMemoryHoldingRepository) Subscribe(ctx context.Context, userID string, fn func()) (func(), error) {
	return r.subs.add(ctx, userID, fn), nil
}

// sortHoldings orders holdings by AddedAt, then ID for a stable display order.
func sortHoldings(holdings []domain.Holding) {
	sort.SliceStable(holdings, func(i, j int) bool {
		if !holdings[i].AddedAt.Equal(holdings[j].AddedAt) {
			return holdings[i].AddedAt.Before(holdings[j].AddedAt)
		}
		return holdings[i].ID < holdings[j].ID
	})
}
