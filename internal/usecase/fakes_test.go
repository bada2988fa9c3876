package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio-backend/internal/domain"
)

var errUpstream = errors.New("upstream unavailable")

// fakeMarket serves canned prices and histories per coin.
type fakeMarket struct {
	mu        sync.Mutex
	prices    map[string]float64
	histories map[string][]float64
	failPrice map[string]bool
	failHist  map[string]bool
	delays    map[string]time.Duration
	calls     int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		prices:    make(map[string]float64),
		histories: make(map[string][]float64),
		failPrice: make(map[string]bool),
		failHist:  make(map[string]bool),
		delays:    make(map[string]time.Duration),
	}
}

func (m *fakeMarket) wait(ctx context.Context, coinID string) error {
	m.mu.Lock()
	m.calls++
	d := m.delays[coinID]
	m.mu.Unlock()
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *fakeMarket) SpotPrice(ctx context.Context, coinID, _ string) (float64, error) {
	if err := m.wait(ctx, coinID); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPrice[coinID] {
		return 0, errUpstream
	}
	p, ok := m.prices[coinID]
	if !ok {
		return 0, domain.ErrPriceNotFound
	}
	return p, nil
}

func (m *fakeMarket) PriceHistory(ctx context.Context, coinID, _ string, _ int) ([]domain.PricePoint, error) {
	if err := m.wait(ctx, coinID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failHist[coinID] {
		return nil, errUpstream
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.PricePoint, len(m.histories[coinID]))
	for i, p := range m.histories[coinID] {
		points[i] = domain.PricePoint{Time: start.Add(time.Duration(i) * 24 * time.Hour), Price: p}
	}
	return points, nil
}

type recordingSink struct {
	mu      sync.Mutex
	sources []string
}

func (s *recordingSink) Report(source string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, source)
}

func (s *recordingSink) reported() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

// series returns n prices starting at start and moving by step.
func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// zigzag returns n prices oscillating around base so RSI stays near 50.
func zigzag(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base
		} else {
			out[i] = base + 1
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// batchMarket adds one-call pricing to fakeMarket.
type batchMarket struct {
	*fakeMarket
	batchErr error
	batches  [][]string
}

func (m *batchMarket) SpotPrices(_ context.Context, coinIDs []string, _ string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, coinIDs)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make(map[string]float64)
	for _, id := range coinIDs {
		if p, ok := m.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
