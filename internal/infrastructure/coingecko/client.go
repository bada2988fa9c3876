package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

const (
	DefaultBaseURL            = "https://api.coingecko.com/api/v3"
	DefaultTimeout            = 10 * time.Second
	DefaultRateLimitPerMinute = 30

	maxIDsPerRequest = 250
)

// Client implements domain.MarketDataProvider against the CoinGecko API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sends the key as the demo API key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps outgoing requests per minute. The burst allows a small
// portfolio to be enriched without waiting.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(perMinute)
	}
}

// WithTimeout bounds each HTTP exchange. Time spent waiting for the rate
// limiter is not counted.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		limiter:    newLimiter(DefaultRateLimitPerMinute),
		logger:     logging.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Is reports a 404 as domain.ErrPriceNotFound so callers can tell an unknown
// coin from an outage.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrPriceNotFound && e.StatusCode == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("path", path).Msg("coingecko request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SpotPrice returns the current price of coinID in currency. A coin missing
// from the response yields domain.ErrPriceNotFound.
func (c *Client) SpotPrice(ctx context.Context, coinID, currency string) (float64, error) {
	prices, err := c.SpotPrices(ctx, []string{coinID}, currency)
	if err != nil {
		return 0, err
	}
	price, ok := prices[coinID]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", coinID, currency, domain.ErrPriceNotFound)
	}
	return price, nil
}

// SpotPrices prices every coin in coinIDs with one /simple/price request per
// maxIDsPerRequest ids. Coins the API does not know are absent from the map.
func (c *Client) SpotPrices(ctx context.Context, coinIDs []string, currency string) (map[string]float64, error) {
	out := make(map[string]float64, len(coinIDs))
	for start := 0; start < len(coinIDs); start += maxIDsPerRequest {
		chunk := coinIDs[start:min(start+maxIDsPerRequest, len(coinIDs))]

		params := url.Values{}
		params.Set("ids", strings.Join(chunk, ","))
		params.Set("vs_currencies", currency)

		var prices map[string]map[string]float64
		if err := c.get(ctx, "/simple/price", params, &prices); err != nil {
			return nil, err
		}
		for _, id := range chunk {
			if price, ok := prices[id][currency]; ok {
				out[id] = price
			}
		}
	}
	return out, nil
}

type marketChart struct {
	Prices [][]json.Number `json:"prices"`
}

// PriceHistory returns the chronological price series of coinID over the
// last days days.
func (c *Client) PriceHistory(ctx context.Context, coinID, currency string, days int) ([]domain.PricePoint, error) {
	params := url.Values{}
	params.Set("vs_currency", currency)
	params.Set("days", strconv.Itoa(days))

	var chart marketChart
	path := "/coins/" + url.PathEscape(coinID) + "/market_chart"
	if err := c.get(ctx, path, params, &chart); err != nil {
		return nil, err
	}

	points := make([]domain.PricePoint, 0, len(chart.Prices))
	for i, p := range chart.Prices {
		if len(p) < 2 {
			return nil, fmt.Errorf("malformed price point %d for %s", i, coinID)
		}
		ms, err := p[0].Int64()
		if err != nil {
			f, ferr := p[0].Float64()
			if ferr != nil {
				return nil, fmt.Errorf("malformed timestamp at %d for %s: %w", i, coinID, ferr)
			}
			ms = int64(f)
		}
		price, err := p[1].Float64()
		if err != nil {
			return nil, fmt.Errorf("malformed price at %d for %s: %w", i, coinID, err)
		}
		points = append(points, domain.PricePoint{Time: time.UnixMilli(ms).UTC(), Price: price})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

var (
	_ domain.MarketDataProvider = (*Client)(nil)
	_ domain.BatchPriceProvider = (*Client)(nil)
)
