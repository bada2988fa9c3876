package domain

import "context"

// HoldingStore is the document store that owns holding records.
type HoldingStore interface {
	ListHoldings(ctx context.Context, userID string) ([]Holding, error)
	AddHolding(ctx context.Context, h Holding) (Holding, error)
	DeleteHolding(ctx context.Context, userID, id string) error
	// Subscribe calls fn after every add or delete for userID until the
	// returned function is called or ctx is done.
	Subscribe(ctx context.Context, userID string, fn func()) (func(), error)
}

// PortfolioRepository caches the latest enriched portfolio per user.
type PortfolioRepository interface {
	// SavePortfolio stores p unless a pass over a later snapshot is already
	// stored, and reports whether p was kept.
	SavePortfolio(p Portfolio) bool
	GetPortfolio(userID string) (Portfolio, bool)
	UserIDs() []string
}
