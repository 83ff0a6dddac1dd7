package allegro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lukman83/listing-miner/internal/retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource hands out an access token for one top-level operation.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// CredentialProvider exchanges client credentials for an access token.
// Tokens are never cached: each Acquire performs a fresh exchange.
type CredentialProvider struct {
	cfg      clientcredentials.Config
	client   *http.Client
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

// NewCredentialProvider builds a provider that authenticates with HTTP basic
// client auth against tokenURL.
func NewCredentialProvider(client *http.Client, tokenURL, clientID, clientSecret string, attempts int, backoff time.Duration, log *slog.Logger) *CredentialProvider {
	if log == nil {
		log = slog.Default()
	}
	return &CredentialProvider{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client:   client,
		attempts: attempts,
		backoff:  backoff,
		log:      log,
	}
}

// Acquire returns a fresh access token or an error wrapping ErrAuth.
func (p *CredentialProvider) Acquire(ctx context.Context) (string, error) {
	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}

	token, err := retry.Do(ctx, p.attempts, p.backoff, func(ctx context.Context) (string, error) {
		tok, err := p.cfg.Token(ctx)
		if err != nil {
			p.log.Warn("token exchange attempt failed", "error", err)
			return "", err
		}
		if tok.AccessToken == "" {
			return "", errors.New("empty access token")
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		p.log.Error("could not fetch token", "token_url", p.cfg.TokenURL, "error", err)
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return token, nil
}
