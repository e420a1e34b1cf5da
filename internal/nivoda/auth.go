package nivoda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultTokenTTL is how long an issued credential is reused before
// re-authenticating. The upstream does not return an expiry, so the lifetime
// is a local constant kept safely below the server-side session window.
const DefaultTokenTTL = 5 * time.Hour

// Credential is a bearer token with its local expiry. The token is attached
// only to outgoing upstream requests and never leaves the process otherwise.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be used at the given time.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// AuthenticateFunc performs one authentication round trip and returns a fresh
// token. Implementations must return *AuthError on any failure.
type AuthenticateFunc func(ctx context.Context) (string, error)

// TokenSource caches a single credential and refreshes it on demand. A mutex
// is held across the refresh so concurrent callers in an expiry window do not
// issue redundant authentication calls.
type TokenSource struct {
	mu           sync.Mutex
	authenticate AuthenticateFunc
	ttl          time.Duration
	now          func() time.Time
	cred         Credential
}

// TokenSourceOption configures a TokenSource.
type TokenSourceOption func(*TokenSource)

// WithTokenTTL overrides the credential lifetime.
func WithTokenTTL(ttl time.Duration) TokenSourceOption {
	return func(s *TokenSource) { s.ttl = ttl }
}

// WithClock injects the time source, used in tests.
func WithClock(now func() time.Time) TokenSourceOption {
	return func(s *TokenSource) { s.now = now }
}

// NewTokenSource creates a TokenSource around an authenticate function.
func NewTokenSource(authenticate AuthenticateFunc, opts ...TokenSourceOption) *TokenSource {
	s := &TokenSource{
		authenticate: authenticate,
		ttl:          DefaultTokenTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the cached credential when still valid, otherwise it
// authenticates, replaces the cached credential and returns the new token.
// Blocks for at most one authentication round trip.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred.Valid(s.now()) {
		return s.cred.Token, nil
	}

	token, err := s.authenticate(ctx)
	if err != nil {
		return "", err
	}

	s.cred = Credential{Token: token, ExpiresAt: s.now().Add(s.ttl)}
	return token, nil
}

// Invalidate drops the cached credential so the next Token call
// re-authenticates. Used when the upstream rejects a token early.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
}

const authenticateQuery = `
query Authenticate($username: String!, $password: String!) {
  authenticate {
    username_and_password(username: $username, password: $password) {
      token
    }
  }
}
`

// authenticatePayload mirrors the nesting of the authenticate query result.
type authenticatePayload struct {
	Authenticate struct {
		UsernameAndPassword struct {
			Token string `json:"token"`
		} `json:"username_and_password"`
	} `json:"authenticate"`
}

// PasswordAuthenticate returns an AuthenticateFunc exchanging the configured
// principal/secret for a session token at the given GraphQL endpoint.
func PasswordAuthenticate(endpoint, username, password string, httpClient *http.Client) AuthenticateFunc {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return func(ctx context.Context) (string, error) {
		payload, err := json.Marshal(GraphQLRequest{
			Query: authenticateQuery,
			Variables: map[string]any{
				"username": username,
				"password": password,
			},
		})
		if err != nil {
			return "", &AuthError{Reason: "marshal request", Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", &AuthError{Reason: "create request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", &AuthError{Reason: "transport failure", Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", &AuthError{Reason: "read response", Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			return "", &AuthError{Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
		}

		var envelope GraphQLResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return "", &AuthError{Reason: "unparseable response", Err: err}
		}
		if len(envelope.Errors) > 0 {
			// Credentials denied; the upstream message is logged by callers,
			// never surfaced to end users.
			return "", &AuthError{Reason: "credentials rejected", Err: &ApplicationError{Errors: envelope.Errors}}
		}

		var parsed authenticatePayload
		if err := json.Unmarshal(envelope.Data, &parsed); err != nil {
			return "", &AuthError{Reason: "unparseable payload", Err: err}
		}
		if parsed.Authenticate.UsernameAndPassword.Token == "" {
			return "", &AuthError{Reason: "response lacks token field"}
		}

		return parsed.Authenticate.UsernameAndPassword.Token, nil
	}
}
