package nivoda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Certificate carries the grading-report attributes of a matched stone. The
// upstream may omit any field.
type Certificate struct {
	CertNumber string   `json:"certNumber"`
	Lab        string   `json:"lab"`
	Shape      string   `json:"shape"`
	Carats     *float64 `json:"carats"`
	Color      string   `json:"color"`
	Clarity    string   `json:"clarity"`
	Cut        string   `json:"cut"`
	Polish     string   `json:"polish"`
	Symmetry   string   `json:"symmetry"`
}

// Diamond is a transient, read-only projection of one upstream record. Not
// cached or persisted.
type Diamond struct {
	ID           string       `json:"id"`
	Certificate  *Certificate `json:"certificate"`
	Price        *int64       `json:"price"`
	Availability string       `json:"availability"`
	Image        string       `json:"image"`
	Video        string       `json:"video"`
}

// QueryResult is the normalized outcome of one certificate query. Zero
// matches is a normal result, not an error.
type QueryResult struct {
	StatusCode int
	TotalCount int
	Items      []Diamond
}

const diamondsByCertificatesQuery = `
query DiamondsByCertificates($certificates: [String!]!, $limit: Int!) {
  diamonds_by_query(query: { certificate_numbers: $certificates }, offset: 0, limit: $limit) {
    total_count
    items {
      id
      certificate {
        certNumber
        lab
        shape
        carats
        color
        clarity
        cut
        polish
        symmetry
      }
      price
      availability
      image
      video
    }
  }
}
`

const pingQuery = `
query Ping {
  diamonds_by_query(query: {}, offset: 0, limit: 1) {
    total_count
  }
}
`

// diamondsPayload mirrors the diamonds_by_query result nesting.
type diamondsPayload struct {
	DiamondsByQuery struct {
		TotalCount int       `json:"total_count"`
		Items      []Diamond `json:"items"`
	} `json:"diamonds_by_query"`
}

// DiamondsByCertificates queries the upstream for records matching any of the
// given certificate strings. In basic mode an authorization failure triggers
// one fallback attempt with a bearer credential from the TokenSource.
func (c *Client) DiamondsByCertificates(ctx context.Context, certificates []string, limit int) (QueryResult, error) {
	if limit <= 0 {
		limit = 5
	}
	variables := map[string]any{
		"certificates": certificates,
		"limit":        limit,
	}
	return c.authedQuery(ctx, diamondsByCertificatesQuery, variables)
}

// Ping exercises a trivial authenticated query, used by the auth probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.authedQuery(ctx, pingQuery, nil)
	return err
}

// authedQuery runs query in the configured auth mode. Basic mode is tried
// first when selected; a response classified as an authorization failure
// falls back to bearer mode once.
func (c *Client) authedQuery(ctx context.Context, query string, variables map[string]any) (QueryResult, error) {
	if c.authMode == AuthModeBasic {
		status, envelope, err := c.execute(ctx, query, variables, c.basicAuthorization())
		if !c.classifier.IsAuthFailure(status, envelope) {
			return parseDiamonds(status, envelope, err)
		}
		if c.tokens == nil {
			return QueryResult{StatusCode: status}, &AuthError{Reason: "basic credentials rejected and no token source configured"}
		}
		c.logger.WarnContext(ctx, "basic auth rejected by upstream, falling back to bearer token")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return QueryResult{}, err
	}

	status, envelope, err := c.execute(ctx, query, variables, "Bearer "+token)
	if c.classifier.IsAuthFailure(status, envelope) {
		// A freshly issued token should not be rejected; treat as fatal.
		c.tokens.Invalidate()
		return QueryResult{StatusCode: status}, &AuthError{Reason: "bearer token rejected by upstream"}
	}
	return parseDiamonds(status, envelope, err)
}

func (c *Client) basicAuthorization() string {
	pair := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	return "Basic " + pair
}

// parseDiamonds folds the transport outcome into a QueryResult, passing
// attempt-scoped errors through with the observed HTTP status preserved.
func parseDiamonds(status int, envelope *GraphQLResponse, err error) (QueryResult, error) {
	if err != nil {
		return QueryResult{StatusCode: status}, err
	}

	var parsed diamondsPayload
	if err := json.Unmarshal(envelope.Data, &parsed); err != nil {
		return QueryResult{StatusCode: status}, &ProtocolError{StatusCode: status, Err: fmt.Errorf("decode payload: %w", err)}
	}

	return QueryResult{
		StatusCode: status,
		TotalCount: parsed.DiamondsByQuery.TotalCount,
		Items:      parsed.DiamondsByQuery.Items,
	}, nil
}
