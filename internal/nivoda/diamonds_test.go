package nivoda_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/certsearch/internal/nivoda"
)

func diamondsBody(total int, certNumbers ...string) string {
	items := make([]map[string]any, len(certNumbers))
	for i, cn := range certNumbers {
		items[i] = map[string]any{
			"id":           fmt.Sprintf("diamond-%d", i+1),
			"certificate":  map[string]any{"certNumber": cn, "lab": "IGI"},
			"availability": "AVAILABLE",
		}
	}
	b, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"diamonds_by_query": map[string]any{
				"total_count": total,
				"items":       items,
			},
		},
	})
	return string(b)
}

func TestDiamondsByCertificatesMatch(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req nivoda.GraphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "certificate_numbers")
		assert.Equal(t, []any{"628496664"}, req.Variables["certificates"])

		fmt.Fprint(w, diamondsBody(1, "628496664"))
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) {
		return "session-token", nil
	})
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	res, err := client.DiamondsByCertificates(context.Background(), []string{"628496664"}, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, res.TotalCount)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "diamond-1", res.Items[0].ID)
	assert.Equal(t, "628496664", res.Items[0].Certificate.CertNumber)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestDiamondsByCertificatesZeroMatchesIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, diamondsBody(0))
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "t", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	res, err := client.DiamondsByCertificates(context.Background(), []string{"nope"}, 5)
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.Empty(t, res.Items)
}

func TestDiamondsByCertificatesBasicFallsBackToBearer(t *testing.T) {
	t.Parallel()

	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		auths = append(auths, auth)
		if strings.HasPrefix(auth, "Basic ") {
			fmt.Fprint(w, `{"errors":[{"message":"not authenticated","extensions":{"code":"UNAUTHENTICATED"}}]}`)
			return
		}
		fmt.Fprint(w, diamondsBody(1, "123456"))
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "fresh", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBasic, tokens)

	res, err := client.DiamondsByCertificates(context.Background(), []string{"123456"}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)
	require.Len(t, auths, 2)
	assert.True(t, strings.HasPrefix(auths[0], "Basic "))
	assert.Equal(t, "Bearer fresh", auths[1])
}

func TestDiamondsByCertificatesSubstringFallback(t *testing.T) {
	t.Parallel()

	// No structured code: only the message fragment gives the failure away.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			fmt.Fprint(w, `{"errors":[{"message":"Invalid token supplied"}]}`)
			return
		}
		fmt.Fprint(w, diamondsBody(0))
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "fresh", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBasic, tokens)

	_, err := client.DiamondsByCertificates(context.Background(), []string{"1"}, 1)
	require.NoError(t, err)
}

func TestDiamondsByCertificatesBearerRejectedIsFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"message":"unauthorized"}]}`)
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "stale", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	_, err := client.DiamondsByCertificates(context.Background(), []string{"1"}, 1)
	var authErr *nivoda.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestDiamondsByCertificatesProtocolError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>gateway error</html>")
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "t", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	_, err := client.DiamondsByCertificates(context.Background(), []string{"1"}, 1)
	var protoErr *nivoda.ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestDiamondsByCertificatesApplicationError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"malformed filter"}]}`)
	}))
	defer srv.Close()

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "t", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	_, err := client.DiamondsByCertificates(context.Background(), []string{"1"}, 1)
	var appErr *nivoda.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Error(), "malformed filter")
}

func TestDiamondsByCertificatesTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	tokens := nivoda.NewTokenSource(func(ctx context.Context) (string, error) { return "t", nil })
	client := nivoda.NewClient(srv.URL, "u", "p", nivoda.AuthModeBearer, tokens)

	_, err := client.DiamondsByCertificates(context.Background(), []string{"1"}, 1)
	var transportErr *nivoda.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPasswordAuthenticate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nivoda.GraphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "username_and_password")
		assert.Equal(t, "user@example.com", req.Variables["username"])

		fmt.Fprint(w, `{"data":{"authenticate":{"username_and_password":{"token":"issued-token"}}}}`)
	}))
	defer srv.Close()

	auth := nivoda.PasswordAuthenticate(srv.URL, "user@example.com", "secret", nil)
	tok, err := auth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "issued-token", tok)
}

func TestPasswordAuthenticateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"denied", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"errors":[{"message":"invalid credentials"}]}`)
		}},
		{"bad status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"unparseable", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		}},
		{"missing token", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"authenticate":{"username_and_password":{}}}}`)
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			auth := nivoda.PasswordAuthenticate(srv.URL, "u", "p", nil)
			_, err := auth(context.Background())

			var authErr *nivoda.AuthError
			require.ErrorAs(t, err, &authErr)
		})
	}
}
