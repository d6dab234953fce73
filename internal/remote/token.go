package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

// TokenSource yields the bearer token to present for a session.
type TokenSource interface {
	Token(ctx context.Context, s session.Session) (string, error)
}

// SessionTokens presents the identity provider's access token unchanged.
type SessionTokens struct{}

func (SessionTokens) Token(_ context.Context, s session.Session) (string, error) {
	return s.AccessToken, nil
}

// ExchangeTokens trades a user id for a token issued by the finance service
// itself (GET /users/{id} -> jwt_token) and caches it per user. When the
// exchange fails the session's own access token is used instead.
type ExchangeTokens struct {
	baseURL string
	http    *http.Client
	tokens  *cache.LRUCache[string]
	group   singleflight.Group
	logger  *log.Logger
}

var _ TokenSource = (*ExchangeTokens)(nil)

func NewExchangeTokens(baseURL string, hc *http.Client, ttl time.Duration, logger *log.Logger) *ExchangeTokens {
	if hc == nil {
		hc = NewHTTPClient(15 * time.Second)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExchangeTokens{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		tokens:  cache.NewLRUCache[string](64, ttl),
		logger:  logger.WithComponent(log.ComponentRemote),
	}
}

// Cache exposes the token cache for periodic cleanup.
func (e *ExchangeTokens) Cache() *cache.LRUCache[string] { return e.tokens }

// Invalidate drops the cached token for userID.
func (e *ExchangeTokens) Invalidate(userID string) {
	e.tokens.Delete(userID)
}

func (e *ExchangeTokens) Token(ctx context.Context, s session.Session) (string, error) {
	if s.UserID == "" {
		return s.AccessToken, nil
	}
	if tok, ok := e.tokens.Get(s.UserID); ok {
		return tok, nil
	}

	v, err, _ := e.group.Do(s.UserID, func() (any, error) {
		return e.exchange(ctx, s.UserID)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.WarnContext(ctx, "Token exchange failed, using session token",
			log.FieldOperation, log.OpExchange, log.FieldUserID, s.UserID, log.FieldError, err)
		return s.AccessToken, nil
	}
	tok := v.(string)
	if tok == "" {
		return s.AccessToken, nil
	}
	e.tokens.Set(s.UserID, tok)
	return tok, nil
}

func (e *ExchangeTokens) exchange(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+UserPath(userID), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return "", &TransportError{Method: http.MethodGet, Path: UserPath(userID), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Method: http.MethodGet, Path: UserPath(userID), Status: resp.StatusCode, Detail: errorDetail(raw)}
	}

	var body struct {
		Aud      string `json:"aud"`
		JWTToken string `json:"jwt_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.JWTToken == "" {
		e.logger.InfoContext(ctx, "Service issued no token for user", log.FieldUserID, userID, "aud", body.Aud)
	}
	return body.JWTToken, nil
}
