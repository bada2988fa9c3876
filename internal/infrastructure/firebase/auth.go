package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"portfolio-backend/internal/domain"
)

// IdentityProvider verifies Firebase ID tokens.
type IdentityProvider struct {
	client *auth.Client
}

func NewIdentityProvider(ctx context.Context, app *firebase.App) (*IdentityProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}
	return &IdentityProvider{client: client}, nil
}

// Authenticate returns the Firebase UID of a valid ID token.
func (p *IdentityProvider) Authenticate(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", domain.ErrUnauthenticated
	}
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return token.UID, nil
}

// LocalIdentityProvider authenticates every request as one fixed user. It is
// used when Firebase is not configured.
type LocalIdentityProvider struct {
	UserID string
}

func (p LocalIdentityProvider) Authenticate(_ context.Context, _ string) (string, error) {
	return p.UserID, nil
}

var (
	_ domain.IdentityProvider = (*IdentityProvider)(nil)
	_ domain.IdentityProvider = LocalIdentityProvider{}
)
