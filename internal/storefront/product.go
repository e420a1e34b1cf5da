package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProductCreateMutation creates a product in the storefront catalog.
const productCreateMutation = `
mutation productCreate($input: ProductInput!) {
  productCreate(input: $input) {
    product {
      id
      handle
    }
    userErrors {
      field
      message
    }
  }
}
`

// ProductInput is the subset of Shopify's ProductInput this service sets when
// creating a product for a resolved diamond.
type ProductInput struct {
	Title       string   `json:"title"`
	Handle      string   `json:"handle,omitempty"`
	BodyHTML    string   `json:"bodyHtml,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
	ProductType string   `json:"productType,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CreatedProduct identifies a product returned by productCreate.
type CreatedProduct struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

type productCreatePayload struct {
	ProductCreate struct {
		Product    *CreatedProduct `json:"product"`
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	} `json:"productCreate"`
}

// CreateProduct issues a single productCreate call. One-shot by design: no
// retry and no read-after-write consistency check.
func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (CreatedProduct, error) {
	envelope, err := c.execute(ctx, productCreateMutation, map[string]any{"input": input})
	if err != nil {
		return CreatedProduct{}, err
	}

	var parsed productCreatePayload
	if err := json.Unmarshal(envelope.Data, &parsed); err != nil {
		return CreatedProduct{}, fmt.Errorf("failed to decode productCreate payload: %w", err)
	}

	if n := len(parsed.ProductCreate.UserErrors); n > 0 {
		msgs := make([]string, n)
		for i, ue := range parsed.ProductCreate.UserErrors {
			msgs[i] = ue.Message
		}
		return CreatedProduct{}, fmt.Errorf("productCreate rejected: %s", strings.Join(msgs, "; "))
	}
	if parsed.ProductCreate.Product == nil {
		return CreatedProduct{}, fmt.Errorf("productCreate returned no product")
	}

	return *parsed.ProductCreate.Product, nil
}
