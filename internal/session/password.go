package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// PasswordAuthenticator signs in against a GoTrue-compatible identity
// provider using the password grant.
type PasswordAuthenticator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator creates an authenticator for the provider at baseURL.
// apiKey is the provider's public (anon) key.
func NewPasswordAuthenticator(baseURL, apiKey string, client *http.Client) *PasswordAuthenticator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PasswordAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		now:     time.Now,
	}
}

func (a *PasswordAuthenticator) SignIn(ctx context.Context, email, password string) (Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	doc, status, err := a.do(req)
	if err != nil {
		return Session{}, err
	}
	if status != http.StatusOK {
		msg := firstString(doc, "$.error_description", "$.msg", "$.message", "$.error")
		if msg == "" {
			msg = http.StatusText(status)
		}
		return Session{}, fmt.Errorf("identity provider returned %d: %s", status, msg)
	}

	s := Session{
		UserID:       firstString(doc, "$.user.id"),
		Email:        firstString(doc, "$.user.email"),
		AccessToken:  firstString(doc, "$.access_token"),
		RefreshToken: firstString(doc, "$.refresh_token"),
	}
	if v, err := jsonpath.Get("$.expires_in", doc); err == nil {
		if secs, ok := v.(float64); ok && secs > 0 {
			s.ExpiresAt = a.now().Add(time.Duration(secs) * time.Second)
		}
	}
	if s.AccessToken == "" {
		return Session{}, fmt.Errorf("identity provider response has no access token")
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (a *PasswordAuthenticator) SignOut(ctx context.Context, s Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	_, status, err := a.do(req)
	if err != nil {
		return err
	}
	// An already-invalid token means the provider has forgotten the session.
	if status >= 300 && status != http.StatusUnauthorized {
		return fmt.Errorf("identity provider returned %d on logout", status)
	}
	return nil
}

func (a *PasswordAuthenticator) do(req *http.Request) (any, int, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	var doc any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil && resp.StatusCode == http.StatusOK {
			return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return doc, resp.StatusCode, nil
}

// firstString returns the first non-empty string found at any of paths.
func firstString(doc any, paths ...string) string {
	if doc == nil {
		return ""
	}
	for _, path := range paths {
		v, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
