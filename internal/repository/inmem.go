package repository

import (
	"sort"
	"sync"

	"portfolio-backend/internal/domain"
)

// InMemoryPortfolioRepository keeps the latest enriched portfolio per user.
type InMemoryPortfolioRepository struct {
	portfolios map[string]domain.Portfolio
	mu         sync.RWMutex
}

func NewInMemoryPortfolioRepository() *InMemoryPortfolioRepository {
	return &InMemoryPortfolioRepository{
		portfolios: make(map[string]domain.Portfolio),
	}
}

// SavePortfolio replaces the user's portfolio; every pass is a full
// recompute. A pass that read its holdings before the stored one is dropped.
func (r *InMemoryPortfolioRepository) SavePortfolio(p domain.Portfolio) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.portfolios[p.UserID]; ok && cur.SnapshotAt.After(p.SnapshotAt) {
		return false
	}
	r.portfolios[p.UserID] = p
	return true
}

func (r *InMemoryPortfolioRepository) GetPortfolio(userID string) (domain.Portfolio, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.portfolios[userID]
	if !ok {
		return domain.Portfolio{}, false
	}
	// Copy the slice so callers cannot reorder the cached pass.
	holdings := make([]domain.EnrichedHolding, len(p.Holdings))
	copy(holdings, p.Holdings)
	p.Holdings = holdings
	return p, true
}

func (r *InMemoryPortfolioRepository) UserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.portfolios))
	for id := range r.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
