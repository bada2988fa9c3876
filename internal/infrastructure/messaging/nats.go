package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url string, logger *logging.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("portfolio-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// PortfolioEvent is published after every enrichment pass.
type PortfolioEvent struct {
	UserID     string                  `json:"userId"`
	Summary    domain.PortfolioSummary `json:"summary"`
	Signals    []Signal                `json:"signals"`
	EnrichedAt time.Time               `json:"enrichedAt"`
}

// Signal is one holding's recommendation at the time of the pass.
type Signal struct {
	HoldingID      string                `json:"holdingId"`
	CoinID         string                `json:"coinId"`
	Price          float64               `json:"price"`
	Recommendation domain.Recommendation `json:"recommendation"`
}

// EventPublisher publishes enriched portfolios to <prefix>.enriched.<user>.
type EventPublisher struct {
	conn   publisher
	prefix string
	logger *logging.Logger
}

func NewEventPublisher(conn *nats.Conn, prefix string, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{conn: conn, prefix: prefix, logger: logger}
}

func (p *EventPublisher) subject(userID string) string {
	return p.prefix + ".enriched." + userID
}

// Notify publishes the pass. Publishing is fire-and-forget; failures are logged.
func (p *EventPublisher) Notify(_ context.Context, portfolio domain.Portfolio) {
	data, err := json.Marshal(newPortfolioEvent(portfolio))
	if err != nil {
		p.logger.Error().Err(err).Msg("encode portfolio event")
		return
	}
	if err := p.conn.Publish(p.subject(portfolio.UserID), data); err != nil {
		p.logger.Warn().Err(err).Str("user", portfolio.UserID).Msg("publish portfolio event")
	}
}

func newPortfolioEvent(p domain.Portfolio) PortfolioEvent {
	signals := make([]Signal, len(p.Holdings))
	for i, h := range p.Holdings {
		signals[i] = Signal{
			HoldingID:      h.ID,
			CoinID:         h.CoinID,
			Price:          h.CurrentPrice,
			Recommendation: h.Recommendation,
		}
	}
	return PortfolioEvent{
		UserID:     p.UserID,
		Summary:    p.Summary,
		Signals:    signals,
		EnrichedAt: p.EnrichedAt,
	}
}
