package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no usable access token is stored.
var ErrNoToken = errors.New("no access token")

// fileTokenSource reads an oauth2.Token stored as JSON.
type fileTokenSource struct {
	path string
}

// FileTokenSource returns a token source backed by the JSON file at path.
// The file is re-read whenever the cached token expires.
func FileTokenSource(path string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, fileTokenSource{path: path})
}

// Token implements oauth2.TokenSource.
func (f fileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoToken, f.path)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", f.path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s has no access_token", ErrNoToken, f.path)
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
