package storefront

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/nivoda"
	"github.com/jafarshop/certsearch/internal/slug"
)

// Catalog is the lookup surface the resolver uses to find the handle the
// storefront actually published for a certificate.
type Catalog interface {
	FirstProductHandle(ctx context.Context, query string) (string, error)
}

// Resolver maps a matched diamond record onto a storefront URL. Strategy
// order: catalog lookup when configured (authoritative but an extra round
// trip), then a deterministic slug synthesized from record fields, then a
// fixed pattern embedding only the matched certificate string. Never fails.
type Resolver struct {
	baseURL string
	catalog Catalog
	logger  *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCatalog enables the catalog-lookup strategy.
func WithCatalog(c Catalog) ResolverOption {
	return func(r *Resolver) { r.catalog = c }
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver. baseURL is the product-page prefix, e.g.
// "https://jafarshop.com/products".
func NewResolver(baseURL string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveURL returns the storefront destination for a matched record. Always
// produces a usable URL, even for a record with every optional field absent.
func (r *Resolver) ResolveURL(ctx context.Context, record *nivoda.Diamond, matchedVariant string) string {
	if r.catalog != nil {
		query := matchedVariant
		if record != nil && record.Certificate != nil && record.Certificate.CertNumber != "" {
			query = record.Certificate.CertNumber
		}
		handle, err := r.catalog.FirstProductHandle(ctx, query)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "catalog lookup failed, falling back to slug strategy",
				slog.String("query", query), logging.Error(err))
		case handle != "":
			return r.baseURL + "/" + handle
		}
	}

	if s := slugFromRecord(record); s != "" {
		return r.baseURL + "/" + s
	}

	if s := slug.Make(matchedVariant); s != "" {
		return r.baseURL + "/" + s
	}
	return r.baseURL + "/" + matchedVariant
}

// slugFromRecord builds a human-readable handle from available record fields
// in a fixed order: carat weight, shape, lab, color, clarity, certificate
// number. Returns "" when no field is present.
func slugFromRecord(record *nivoda.Diamond) string {
	if record == nil || record.Certificate == nil {
		return ""
	}
	cert := record.Certificate

	var parts []string
	if cert.Carats != nil {
		parts = append(parts, fmt.Sprintf("%.2fct", *cert.Carats))
	}
	for _, p := range []string{cert.Shape, cert.Lab, cert.Color, cert.Clarity, cert.CertNumber} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return slug.Make(strings.Join(parts, " "))
}
