package domain

import "context"

// MarketDataProvider serves spot prices and price histories by coin id.
type MarketDataProvider interface {
	SpotPrice(ctx context.Context, coinID, currency string) (float64, error)
	PriceHistory(ctx context.Context, coinID, currency string, days int) ([]PricePoint, error)
}

// BatchPriceProvider is implemented by providers that can price several coins
// in one upstream call. Coins without a price are absent from the result.
type BatchPriceProvider interface {
	SpotPrices(ctx context.Context, coinIDs []string, currency string) (map[string]float64, error)
}

// DiagnosticSink receives fail-soft failure reports. Report must not block.
type DiagnosticSink interface {
	Report(source string, err error)
}

// IdentityProvider turns a client credential into a stable user handle.
type IdentityProvider interface {
	Authenticate(ctx context.Context, credential string) (string, error)
}
