package fcm

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"portfolio-backend/internal/infrastructure/logging"
)

// AndroidChannel is the notification channel portfolio alerts are posted to.
const AndroidChannel = "portfolio_alerts"

var ErrDisabled = errors.New("fcm: push notifications are not configured")

type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client pushes portfolio alerts through Firebase Cloud Messaging. A client
// built without a Firebase app is disabled.
type Client struct {
	messages multicaster
	logger   *logging.Logger
	isStale  func(error) bool
	onStale  func(token string)
}

type Option func(*Client)

// WithStaleTokenHandler calls fn for every token FCM reports as no longer
// registered.
func WithStaleTokenHandler(fn func(token string)) Option {
	return func(c *Client) {
		c.onStale = fn
	}
}

func NewClient(ctx context.Context, app *firebase.App, logger *logging.Logger, opts ...Option) (*Client, error) {
	c := &Client{logger: logger, isStale: messaging.IsUnregistered}
	for _, opt := range opts {
		opt(c)
	}

	if app == nil {
		logger.Warn().Msg("no Firebase app, push notifications disabled")
		return c, nil
	}

	messages, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	c.messages = messages
	logger.Info().Msg("Firebase Cloud Messaging initialized")
	return c, nil
}

func (c *Client) IsEnabled() bool {
	return c.messages != nil
}

// SendMulticast pushes one notification to every token. Partial delivery
// counts as success; unregistered tokens are handed to the stale handler.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if !c.IsEnabled() {
		return ErrDisabled
	}
	if len(tokens) == 0 {
		return nil
	}

	resp, err := c.messages.SendEachForMulticast(ctx, newMessage(tokens, title, body, data))
	if err != nil {
		return fmt.Errorf("send multicast: %w", err)
	}

	var firstErr error
	for i, r := range resp.Responses {
		if r == nil || r.Success || i >= len(tokens) {
			continue
		}
		if firstErr == nil {
			firstErr = r.Error
		}
		if c.onStale != nil && c.isStale(r.Error) {
			c.logger.Info().Str("token", redact(tokens[i])).Msg("dropping unregistered device")
			c.onStale(tokens[i])
		}
	}

	c.logger.Debug().
		Int("success", resp.SuccessCount).
		Int("failure", resp.FailureCount).
		Msg("multicast sent")

	if resp.SuccessCount == 0 {
		return fmt.Errorf("no device accepted the notification: %w", firstErr)
	}
	return nil
}

func newMessage(tokens []string, title, body string, data map[string]string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: AndroidChannel,
				Priority:  messaging.PriorityHigh,
			},
		},
	}
}

func redact(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
