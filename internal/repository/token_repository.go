package repository

import (
	"sort"
	"sync"
)

// DeviceToken is a push target registered by a user.
type DeviceToken struct {
	Token     string
	UserID    string
	Platform  string // "android", "ios" or "web"
	CreatedAt int64
}

// TokenRepository keeps device tokens in memory, indexed by owner. A token
// belongs to at most one user at a time.
type TokenRepository struct {
	mu     sync.RWMutex
	byUser map[string]map[string]DeviceToken
	owner  map[string]string // token -> user
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		byUser: make(map[string]map[string]DeviceToken),
		owner:  make(map[string]string),
	}
}

// RegisterToken adds or refreshes a device. A token registered by another
// user moves to userID.
func (r *TokenRepository) RegisterToken(userID, token, platform string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(token)
	devices, ok := r.byUser[userID]
	if !ok {
		devices = make(map[string]DeviceToken)
		r.byUser[userID] = devices
	}
	devices[token] = DeviceToken{Token: token, UserID: userID, Platform: platform, CreatedAt: timestamp}
	r.owner[token] = userID
}

// UnregisterToken removes token if userID owns it.
func (r *TokenRepository) UnregisterToken(userID, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owner[token] == userID {
		r.removeLocked(token)
	}
}

// Forget drops token whoever owns it. Used when the push provider reports
// the device as gone.
func (r *TokenRepository) Forget(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(token)
}

func (r *TokenRepository) removeLocked(token string) {
	userID, ok := r.owner[token]
	if !ok {
		return
	}
	delete(r.owner, token)
	delete(r.byUser[userID], token)
	if len(r.byUser[userID]) == 0 {
		delete(r.byUser, userID)
	}
}

// GetTokens returns the user's tokens in lexical order.
func (r *TokenRepository) GetTokens(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.byUser[userID]))
	for token := range r.byUser[userID] {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func (r *TokenRepository) GetTokenCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}
