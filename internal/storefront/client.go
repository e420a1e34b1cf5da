// Package storefront maps resolved diamond records onto storefront product
// URLs and wraps the Shopify Admin GraphQL API for catalog lookups and the
// one-shot product-create side effect.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIVersion is the Shopify Admin API version used when none is
// configured.
const DefaultAPIVersion = "2024-10"

// Client is a Shopify Admin GraphQL client.
type Client struct {
	shopDomain       string
	accessToken      string
	apiVersion       string
	endpointOverride string
	httpClient       *http.Client
	logger           *slog.Logger
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

// WithEndpoint points the client at an explicit GraphQL URL instead of the
// one derived from the shop domain, used in tests.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.endpointOverride = url }
}

// NewClient creates a Shopify client. The shop domain is normalized: scheme
// and trailing slashes are stripped.
func NewClient(shopDomain, accessToken, apiVersion string, opts ...ClientOption) *Client {
	shopDomain = strings.TrimPrefix(shopDomain, "https://")
	shopDomain = strings.TrimPrefix(shopDomain, "http://")
	shopDomain = strings.TrimSuffix(shopDomain, "/")

	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	c := &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		apiVersion:  apiVersion,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

func (c *Client) endpoint() string {
	if c.endpointOverride != "" {
		return c.endpointOverride
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.shopDomain, c.apiVersion)
}

// execute runs one GraphQL query/mutation against the Admin API.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (*graphQLResponse, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, ge := range envelope.Errors {
			msgs[i] = ge.Message
		}
		return nil, fmt.Errorf("graphQL errors: %s", strings.Join(msgs, "; "))
	}

	return &envelope, nil
}

// ProductsByQueryTemplate finds products by a free-text search query, e.g. a
// certificate number.
const productsByQueryQuery = `
query getProductsByQuery($query: String!) {
  products(first: 1, query: $query) {
    edges {
      node {
        id
        handle
        title
      }
    }
  }
}
`

type productsPayload struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID     string `json:"id"`
				Handle string `json:"handle"`
				Title  string `json:"title"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// FirstProductHandle searches the catalog with the given free-text query and
// returns the first result's handle, or "" when nothing matches.
func (c *Client) FirstProductHandle(ctx context.Context, query string) (string, error) {
	envelope, err := c.execute(ctx, productsByQueryQuery, map[string]any{"query": query})
	if err != nil {
		return "", err
	}

	var parsed productsPayload
	if err := json.Unmarshal(envelope.Data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode products payload: %w", err)
	}
	if len(parsed.Products.Edges) == 0 {
		return "", nil
	}
	return parsed.Products.Edges[0].Node.Handle, nil
}
