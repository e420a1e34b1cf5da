// Package nivoda is the client for the supplier inventory GraphQL API. It
// covers authentication (cached, auto-renewing bearer credential or a
// pre-shared basic pair), certificate queries and a uniform error taxonomy.
package nivoda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single upstream round trip.
const DefaultTimeout = 10 * time.Second

// AuthMode selects how requests are authenticated.
type AuthMode string

const (
	// AuthModeBasic sends the pre-shared principal/secret pair per request.
	AuthModeBasic AuthMode = "basic"
	// AuthModeBearer attaches a session token from the TokenSource.
	AuthModeBearer AuthMode = "bearer"
)

// GraphQLRequest is the upstream request envelope.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLResponse is the upstream response envelope.
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError is a single upstream error entry.
type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

// Client issues authenticated GraphQL queries against the supplier API.
type Client struct {
	endpoint   string
	username   string
	password   string
	authMode   AuthMode
	tokens     *TokenSource
	httpClient *http.Client
	logger     *slog.Logger
	classifier AuthFailureClassifier
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, used in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithAuthFailureClassifier swaps the authorization-failure detection used
// for the basic→bearer fallback.
func WithAuthFailureClassifier(cl AuthFailureClassifier) ClientOption {
	return func(c *Client) { c.classifier = cl }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a supplier API client. mode selects the transport auth;
// tokens may be nil only when mode is basic and no fallback is wanted.
func NewClient(endpoint, username, password string, mode AuthMode, tokens *TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		authMode:   mode,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		classifier: DefaultAuthFailureClassifier(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthMode reports the configured transport auth mode.
func (c *Client) AuthMode() AuthMode { return c.authMode }

// execute posts one GraphQL request with the given Authorization header value
// and normalizes the outcome. The HTTP status is returned even on error so
// callers can classify authorization failures. GraphQL-level errors are
// reported via *ApplicationError alongside the parsed envelope.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, authorization string) (int, *GraphQLResponse, error) {
	payload, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Err: err}
	}

	var envelope GraphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return resp.StatusCode, nil, &ProtocolError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &envelope, &ProtocolError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body: %s", truncateBody(body)),
		}
	}

	if len(envelope.Errors) > 0 {
		return resp.StatusCode, &envelope, &ApplicationError{Errors: envelope.Errors}
	}

	return resp.StatusCode, &envelope, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// truncateBody keeps error messages bounded when the upstream returns large
// non-JSON payloads (HTML error pages and the like).
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
