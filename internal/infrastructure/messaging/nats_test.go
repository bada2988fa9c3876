package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestEventPublisher_Notify(t *testing.T) {
	conn := &recordingConn{}
	p := &EventPublisher{conn: conn, prefix: "portfolio", logger: logging.NewSilentLogger()}

	p.Notify(context.Background(), domain.Portfolio{
		UserID: "u1",
		Holdings: []domain.EnrichedHolding{
			{Holding: domain.Holding{ID: "h1", CoinID: "bitcoin"}, CurrentPrice: 10, Recommendation: domain.StrongBuy},
			{Holding: domain.Holding{ID: "h2", CoinID: "ethereum"}, CurrentPrice: 5, Recommendation: domain.Hold},
		},
		Summary: domain.PortfolioSummary{Count: 2},
	})

	require.Equal(t, []string{"portfolio.enriched.u1"}, conn.subjects)

	var event PortfolioEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &event))
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, 2, event.Summary.Count)
	require.Len(t, event.Signals, 2)
	assert.Equal(t, "bitcoin", event.Signals[0].CoinID)
	assert.Equal(t, domain.StrongBuy, event.Signals[0].Recommendation)
}

func TestEventPublisher_PublishFailureIsSwallowed(t *testing.T) {
	conn := &recordingConn{err: errors.New("nats: connection closed")}
	p := &EventPublisher{conn: conn, prefix: "portfolio", logger: logging.NewSilentLogger()}

	assert.NotPanics(t, func() {
		p.Notify(context.Background(), domain.Portfolio{UserID: "u1"})
	})
}
