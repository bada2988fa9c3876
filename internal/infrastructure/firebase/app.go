// Package firebase bootstraps the Firebase app shared by Auth, Firestore and
// Cloud Messaging.
package firebase

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// ErrNoCredentials is returned when neither a credentials file nor inline
// credentials JSON were configured.
var ErrNoCredentials = errors.New("no firebase credentials configured")

// Credentials selects the service account used by the Firebase app.
type Credentials struct {
	Path      string
	JSON      string
	ProjectID string
}

// NewApp initializes the Firebase app. A file path wins over inline JSON.
func NewApp(ctx context.Context, creds Credentials) (*firebase.App, error) {
	var opt option.ClientOption
	switch {
	case creds.Path != "":
		opt = option.WithCredentialsFile(creds.Path)
	case creds.JSON != "":
		opt = option.WithCredentialsJSON([]byte(creds.JSON))
	default:
		return nil, ErrNoCredentials
	}

	var cfg *firebase.Config
	if creds.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
