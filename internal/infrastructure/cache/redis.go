// Package cache keeps recent market data in Redis so repeated enrichment
// passes do not spend the upstream rate limit.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// MarketCache is a read-through cache in front of a MarketDataProvider.
// Redis failures are logged and fall through to the upstream provider.
type MarketCache struct {
	upstream   domain.MarketDataProvider
	client     redis.UniversalClient
	priceTTL   time.Duration
	historyTTL time.Duration
	logger     *logging.Logger
}

func NewMarketCache(upstream domain.MarketDataProvider, client redis.UniversalClient, priceTTL, historyTTL time.Duration, logger *logging.Logger) *MarketCache {
	return &MarketCache{
		upstream:   upstream,
		client:     client,
		priceTTL:   priceTTL,
		historyTTL: historyTTL,
		logger:     logger,
	}
}

func priceKey(coinID, currency string) string {
	return fmt.Sprintf("price:%s:%s", coinID, currency)
}

func historyKey(coinID, currency string, days int) string {
	return fmt.Sprintf("history:%s:%s:%d", coinID, currency, days)
}

func (c *MarketCache) SpotPrice(ctx context.Context, coinID, currency string) (float64, error) {
	key := priceKey(coinID, currency)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if price, perr := strconv.ParseFloat(raw, 64); perr == nil {
			return price, nil
		}
	case err != redis.Nil:
		c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
	}

	price, err := c.upstream.SpotPrice(ctx, coinID, currency)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.FormatFloat(price, 'g', -1, 64), c.priceTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
	return price, nil
}

// SpotPrices serves cached prices and asks upstream for the rest in one batch
// when upstream supports it.
func (c *MarketCache) SpotPrices(ctx context.Context, coinIDs []string, currency string) (map[string]float64, error) {
	out := make(map[string]float64, len(coinIDs))
	if len(coinIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(coinIDs))
	for i, id := range coinIDs {
		keys[i] = priceKey(id, currency)
	}
	var missing []string
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Debug().Err(err).Int("keys", len(keys)).Msg("cache read failed")
		missing = coinIDs
	} else {
		for i, v := range cached {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, coinIDs[i])
				continue
			}
			price, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				missing = append(missing, coinIDs[i])
				continue
			}
			out[coinIDs[i]] = price
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.fetchPrices(ctx, missing, currency)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for id, price := range fetched {
		out[id] = price
		pipe.Set(ctx, priceKey(id, currency), strconv.FormatFloat(price, 'g', -1, 64), c.priceTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Debug().Err(err).Int("keys", len(fetched)).Msg("cache write failed")
	}
	return out, nil
}

func (c *MarketCache) fetchPrices(ctx context.Context, coinIDs []string, currency string) (map[string]float64, error) {
	if batch, ok := c.upstream.(domain.BatchPriceProvider); ok {
		return batch.SpotPrices(ctx, coinIDs, currency)
	}
	out := make(map[string]float64, len(coinIDs))
	for _, id := range coinIDs {
		price, err := c.upstream.SpotPrice(ctx, id, currency)
		switch {
		case err == nil:
			out[id] = price
		case errors.Is(err, domain.ErrPriceNotFound):
		default:
			return nil, err
		}
	}
	return out, nil
}

func (c *MarketCache) PriceHistory(ctx context.Context, coinID, currency string, days int) ([]domain.PricePoint, error) {
	key := historyKey(coinID, currency, days)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var points []domain.PricePoint
		if jerr := json.Unmarshal(raw, &points); jerr == nil {
			return points, nil
		}
	case err != redis.Nil:
		c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
	}

	points, err := c.upstream.PriceHistory(ctx, coinID, currency, days)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(points)
	if err != nil {
		return points, nil
	}
	if err := c.client.Set(ctx, key, data, c.historyTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
	return points, nil
}

var (
	_ domain.MarketDataProvider = (*MarketCache)(nil)
	_ domain.BatchPriceProvider = (*MarketCache)(nil)
)
