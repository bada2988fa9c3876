// Package timeseries records the value of every enriched portfolio in
// InfluxDB so its history can be charted.
package timeseries

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

const (
	portfolioMeasurement = "portfolio_value"
	holdingMeasurement   = "holding_value"
)

// PortfolioRecorder writes one summary point and one point per holding for
// every pass.
type PortfolioRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *logging.Logger
}

func NewPortfolioRecorder(url, token, org, bucket string, logger *logging.Logger) *PortfolioRecorder {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(10).
			SetLogLevel(0),
	)
	return &PortfolioRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		logger:   logger,
	}
}

func (r *PortfolioRecorder) Close() {
	r.client.Close()
}

// Notify records the pass. Failures are logged.
func (r *PortfolioRecorder) Notify(ctx context.Context, p domain.Portfolio) {
	if err := r.writeAPI.WritePoint(ctx, portfolioPoints(p)...); err != nil {
		r.logger.Warn().Err(err).Str("user", p.UserID).Msg("record portfolio value")
	}
}

func portfolioPoints(p domain.Portfolio) []*write.Point {
	points := make([]*write.Point, 0, len(p.Holdings)+1)
	points = append(points, influxdb2.NewPoint(
		portfolioMeasurement,
		map[string]string{"user": p.UserID},
		map[string]interface{}{
			"invested": p.Summary.TotalInvested,
			"value":    p.Summary.CurrentValue,
			"profit":   p.Summary.TotalProfit,
			"holdings": p.Summary.Count,
		},
		p.EnrichedAt,
	))

	for _, h := range p.Holdings {
		fields := map[string]interface{}{
			"price":          h.CurrentPrice,
			"quantity":       h.Quantity,
			"profit":         h.Profit,
			"recommendation": string(h.Recommendation),
		}
		if h.Indicators.RSI != nil {
			fields["rsi"] = *h.Indicators.RSI
		}
		points = append(points, influxdb2.NewPoint(
			holdingMeasurement,
			map[string]string{"user": p.UserID, "coin": h.CoinID, "holding": h.ID},
			fields,
			p.EnrichedAt,
		))
	}
	return points
}

// Health checks that InfluxDB is reachable.
func (r *PortfolioRecorder) Health(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("influxdb health check failed: %s", health.Status)
	}
	return nil
}
