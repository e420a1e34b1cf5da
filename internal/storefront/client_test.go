package storefront_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/certsearch/internal/storefront"
)

func TestFirstProductHandle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vars := req["variables"].(map[string]any)
		assert.Equal(t, "628496664", vars["query"])

		fmt.Fprint(w, `{"data":{"products":{"edges":[{"node":{"id":"gid://shopify/Product/1","handle":"igi-round-diamond","title":"IGI Round Diamond"}}]}}}`)
	}))
	defer srv.Close()

	client := storefront.NewClient("jafarshop.myshopify.com", "shpat_test", "", storefront.WithEndpoint(srv.URL))

	handle, err := client.FirstProductHandle(context.Background(), "628496664")
	require.NoError(t, err)
	assert.Equal(t, "igi-round-diamond", handle)
}

func TestFirstProductHandleNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"products":{"edges":[]}}}`)
	}))
	defer srv.Close()

	client := storefront.NewClient("shop", "tok", "", storefront.WithEndpoint(srv.URL))

	handle, err := client.FirstProductHandle(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, handle)
}

func TestFirstProductHandleGraphQLError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"query syntax"}]}`)
	}))
	defer srv.Close()

	client := storefront.NewClient("shop", "tok", "", storefront.WithEndpoint(srv.URL))

	_, err := client.FirstProductHandle(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query syntax")
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		input := req["variables"].(map[string]any)["input"].(map[string]any)
		assert.Equal(t, "1.02ct Round IGI F VS1", input["title"])

		fmt.Fprint(w, `{"data":{"productCreate":{"product":{"id":"gid://shopify/Product/2","handle":"1-02ct-round-igi-f-vs1"},"userErrors":[]}}}`)
	}))
	defer srv.Close()

	client := storefront.NewClient("shop", "tok", "", storefront.WithEndpoint(srv.URL))

	created, err := client.CreateProduct(context.Background(), storefront.ProductInput{Title: "1.02ct Round IGI F VS1"})
	require.NoError(t, err)
	assert.Equal(t, "1-02ct-round-igi-f-vs1", created.Handle)
}

func TestCreateProductUserErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"productCreate":{"product":null,"userErrors":[{"field":["title"],"message":"can't be blank"}]}}}`)
	}))
	defer srv.Close()

	client := storefront.NewClient("shop", "tok", "", storefront.WithEndpoint(srv.URL))

	_, err := client.CreateProduct(context.Background(), storefront.ProductInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't be blank")
}
