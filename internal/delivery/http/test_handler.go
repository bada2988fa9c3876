package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"portfolio-backend/internal/repository"
)

// PushSender delivers push notifications to device tokens.
type PushSender interface {
	IsEnabled() bool
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// TestHandler sends a test push to the caller's registered devices.
type TestHandler struct {
	sender    PushSender
	tokenRepo *repository.TokenRepository
}

func NewTestHandler(sender PushSender, tokenRepo *repository.TokenRepository) *TestHandler {
	return &TestHandler{
		sender:    sender,
		tokenRepo: tokenRepo,
	}
}

func (h *TestHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserID(r.Context())

	if h.sender == nil || !h.sender.IsEnabled() {
		writeJSON(w, http.StatusServiceUnavailable, TokenResponse{Message: "FCM not configured"})
		return
	}

	tokens := h.tokenRepo.GetTokens(uid)
	if len(tokens) == 0 {
		writeJSON(w, http.StatusOK, TokenResponse{Message: "No registered devices"})
		return
	}

	data := map[string]string{
		"type":      "test",
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	err := h.sender.SendMulticast(r.Context(), tokens, "🧪 Test Notification",
		"Portfolio alerts are working on this device ✅", data)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, TokenResponse{
			Message: "Failed to send notification: " + err.Error(),
			Count:   len(tokens),
		})
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Message: "Test notification sent successfully",
		Count:   len(tokens),
	})
}
