package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// PushSender delivers a notification to a set of device tokens.
type PushSender interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// DeviceTokens lists the devices registered by a user.
type DeviceTokens interface {
	GetTokens(userID string) []string
}

// AlertNotifier pushes Strong Buy and Strong Sell recommendations to the
// owner's devices, at most once per cooldown for the same coin and label.
type AlertNotifier struct {
	sender   PushSender
	tokens   DeviceTokens
	cooldown time.Duration
	logger   *logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time // user/coin/label -> last push
}

func NewAlertNotifier(sender PushSender, tokens DeviceTokens, cooldown time.Duration, logger *logging.Logger) *AlertNotifier {
	return &AlertNotifier{
		sender:   sender,
		tokens:   tokens,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
		notified: make(map[string]time.Time),
	}
}

// Notify implements Alerter.
func (n *AlertNotifier) Notify(ctx context.Context, p domain.Portfolio) {
	if n.sender == nil || !n.sender.IsEnabled() {
		return
	}

	tokens := n.tokens.GetTokens(p.UserID)
	if len(tokens) == 0 {
		return
	}

	now := n.now()
	for _, h := range p.Holdings {
		if !h.Recommendation.IsStrong() {
			continue
		}

		key := p.UserID + "/" + h.CoinID + "/" + string(h.Recommendation)
		last, seen, ok := n.reserve(key, now)
		if !ok {
			continue
		}

		title, body, data := alertMessage(h)
		if err := n.sender.SendMulticast(ctx, tokens, title, body, data); err != nil {
			n.logger.Error().Err(err).Str("coin", h.CoinID).Msg("send alert")
			n.release(key, now, last, seen)
			continue
		}
		n.logger.Info().Str("coin", h.CoinID).Int("devices", len(tokens)).Msg("alert sent")
	}

	// Drop entries that can no longer suppress anything.
	n.mu.Lock()
	for key, ts := range n.notified {
		if now.Sub(ts) > n.cooldown*2 {
			delete(n.notified, key)
		}
	}
	n.mu.Unlock()
}

// reserve claims key for a send at now unless it is still cooling down. The
// previous entry is returned so a failed send can restore it.
func (n *AlertNotifier) reserve(key string, now time.Time) (last time.Time, seen, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, seen = n.notified[key]
	if seen && now.Sub(last) < n.cooldown {
		return last, seen, false
	}
	n.notified[key] = now
	return last, seen, true
}

// release undoes a reservation made at now, leaving newer ones alone.
func (n *AlertNotifier) release(key string, now, last time.Time, seen bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if cur, ok := n.notified[key]; !ok || !cur.Equal(now) {
		return
	}
	if seen {
		n.notified[key] = last
	} else {
		delete(n.notified, key)
	}
}

func alertMessage(h domain.EnrichedHolding) (string, string, map[string]string) {
	emoji := "🟢"
	if h.Recommendation == domain.StrongSell {
		emoji = "🔴"
	}
	title := fmt.Sprintf("%s %s %s", emoji, strings.ToUpper(h.CoinID), h.Recommendation)

	rsi := "N/A"
	if h.Indicators.RSI != nil {
		rsi = fmt.Sprintf("%.2f", *h.Indicators.RSI)
	}
	body := fmt.Sprintf("RSI: %s | Price: %.2f | P/L: %.2f", rsi, h.CurrentPrice, h.Profit)

	data := map[string]string{
		"coinId":         h.CoinID,
		"holdingId":      h.ID,
		"recommendation": string(h.Recommendation),
		"price":          fmt.Sprintf("%.2f", h.CurrentPrice),
		"rsi":            rsi,
	}
	return title, body, data
}
