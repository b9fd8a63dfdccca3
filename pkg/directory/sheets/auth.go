package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrTokenMissing means no saved OAuth token exists yet; the operator must
// authorize the app out-of-band and save the token file.
var ErrTokenMissing = errors.New("sheets oauth token not found")

// OAuthConfig parses an installed-app client JSON for read access to spreadsheets.
func OAuthConfig(credentialsJSON []byte) (*oauth2.Config, error) {
	if len(strings.TrimSpace(string(credentialsJSON))) == 0 {
		return nil, errors.New("google oauth client credentials are empty")
	}

	cfg, err := google.ConfigFromJSON(credentialsJSON, sheetsapi.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse google oauth client credentials: %w", err)
	}

	return cfg, nil
}

// LoadToken reads a token saved as JSON.
func LoadToken(path string) (*oauth2.Token, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTokenMissing, path)
		}
		return nil, fmt.Errorf("read oauth token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(content, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	return &token, nil
}

// ClientOptions builds the authenticated client options for New.
//
// When the token is missing the returned error carries the consent URL the
// operator has to visit.
func ClientOptions(ctx context.Context, credentialsJSON []byte, tokenPath string) ([]option.ClientOption, error) {
	cfg, err := OAuthConfig(credentialsJSON)
	if err != nil {
		return nil, err
	}

	token, err := LoadToken(tokenPath)
	if err != nil {
		if errors.Is(err, ErrTokenMissing) {
			authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			return nil, fmt.Errorf("%w (authorize at %s)", err, authURL)
		}
		return nil, err
	}

	return []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, token))}, nil
}
