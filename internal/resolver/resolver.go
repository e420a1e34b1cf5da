// Package resolver orchestrates certificate resolution: variant generation,
// upstream querying with a first-match-wins policy, and storefront URL
// mapping. State machine per resolution:
//
//	Start → Normalizing → Querying(variant i) → {Matched | NextVariant | Exhausted}
package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/nivoda"
)

// DefaultDeadline bounds a whole resolution across all variants.
const DefaultDeadline = 30 * time.Second

// defaultMatchLimit caps records requested per variant; only the first record
// of the first matching variant is ever used.
const defaultMatchLimit = 5

// Upstream is the supplier query surface the pipeline depends on.
type Upstream interface {
	DiamondsByCertificates(ctx context.Context, certificates []string, limit int) (nivoda.QueryResult, error)
}

// VariantSource produces the ordered candidate strings for a raw certificate.
type VariantSource interface {
	Variants(raw string) []string
}

// URLResolver maps a matched record onto a storefront destination. Must never
// fail: some usable URL is always produced.
type URLResolver interface {
	ResolveURL(ctx context.Context, record *nivoda.Diamond, matchedVariant string) string
}

// Attempt is the diagnostic record of one upstream try. The full ordered
// sequence is returned to the caller for transparency and never stored.
type Attempt struct {
	Variant    string `json:"variant"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	MatchCount int    `json:"matchCount"`
	Error      string `json:"error,omitempty"`
}

// Result is the terminal state of one resolution.
type Result struct {
	Found          bool
	MatchedVariant string
	Record         *nivoda.Diamond
	DestinationURL string
	Attempts       []Attempt
	// AllFailed distinguishes "upstream is down" (every attempt errored)
	// from the normal zero-match exhaustion.
	AllFailed bool
}

// Pipeline resolves raw certificate strings. Holds no cross-request state.
type Pipeline struct {
	upstream Upstream
	variants VariantSource
	urls     URLResolver
	logger   *slog.Logger
	limit    int
	deadline time.Duration
	batch    bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithDeadline bounds a whole resolution. Zero disables the deadline.
func WithDeadline(d time.Duration) Option {
	return func(p *Pipeline) { p.deadline = d }
}

// WithMatchLimit sets the per-query record limit.
func WithMatchLimit(n int) Option {
	return func(p *Pipeline) { p.limit = n }
}

// WithBatchQueries sends all variants in a single upstream call instead of
// one round trip per variant. The attempt log then carries one batch entry.
func WithBatchQueries(enabled bool) Option {
	return func(p *Pipeline) { p.batch = enabled }
}

// New creates a Pipeline.
func New(upstream Upstream, variants VariantSource, urls URLResolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		upstream: upstream,
		variants: variants,
		urls:     urls,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		limit:    defaultMatchLimit,
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve tries each variant in generator order and stops at the first one
// the upstream matches. Per-variant upstream errors are recorded in the
// attempt log and do not abort the loop; an authentication failure aborts
// immediately since no variant can be queried without a credential.
func (p *Pipeline) Resolve(ctx context.Context, raw string) (Result, error) {
	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	variants := p.variants.Variants(raw)
	if len(variants) == 0 {
		return Result{}, nil
	}

	if p.batch {
		return p.resolveBatch(ctx, variants)
	}

	start := time.Now()
	attempts := make([]Attempt, 0, len(variants))
	errored := 0

	for _, variant := range variants {
		res, err := p.upstream.DiamondsByCertificates(ctx, []string{variant}, p.limit)
		if err != nil {
			var authErr *nivoda.AuthError
			if errors.As(err, &authErr) {
				// The variant was never actually queried; its attempt is not
				// recorded.
				return Result{Attempts: attempts}, err
			}
			attempts = append(attempts, Attempt{
				Variant:    variant,
				HTTPStatus: res.StatusCode,
				Error:      err.Error(),
			})
			errored++
			p.logger.WarnContext(ctx, "variant attempt failed",
				slog.String("variant", variant), logging.Error(err))
			continue
		}

		attempts = append(attempts, Attempt{
			Variant:    variant,
			HTTPStatus: res.StatusCode,
			MatchCount: res.TotalCount,
		})

		if res.TotalCount > 0 && len(res.Items) > 0 {
			return p.matched(ctx, res.Items[0], variant, attempts, start), nil
		}
	}

	p.logger.InfoContext(ctx, "certificate resolution exhausted",
		slog.String("raw", raw),
		slog.Int("variants", len(variants)),
		logging.Elapsed(start))

	return Result{
		Attempts:  attempts,
		AllFailed: errored > 0 && errored == len(attempts),
	}, nil
}

// resolveBatch queries all variants in one certificate_numbers filter. The
// matched variant is picked by generator order among the returned
// certificate numbers, never by arrival order.
func (p *Pipeline) resolveBatch(ctx context.Context, variants []string) (Result, error) {
	start := time.Now()

	res, err := p.upstream.DiamondsByCertificates(ctx, variants, p.limit*len(variants))
	if err != nil {
		var authErr *nivoda.AuthError
		if errors.As(err, &authErr) {
			return Result{}, err
		}
		return Result{
			Attempts: []Attempt{{
				Variant:    strings.Join(variants, ","),
				HTTPStatus: res.StatusCode,
				Error:      err.Error(),
			}},
			AllFailed: true,
		}, nil
	}

	attempts := []Attempt{{
		Variant:    strings.Join(variants, ","),
		HTTPStatus: res.StatusCode,
		MatchCount: res.TotalCount,
	}}

	if res.TotalCount == 0 || len(res.Items) == 0 {
		return Result{Attempts: attempts}, nil
	}

	for _, variant := range variants {
		for i := range res.Items {
			cert := res.Items[i].Certificate
			if cert != nil && strings.EqualFold(cert.CertNumber, variant) {
				return p.matched(ctx, res.Items[i], variant, attempts, start), nil
			}
		}
	}

	// Upstream matched on a form it normalized internally; attribute the hit
	// to the first variant.
	return p.matched(ctx, res.Items[0], variants[0], attempts, start), nil
}

func (p *Pipeline) matched(ctx context.Context, record nivoda.Diamond, variant string, attempts []Attempt, start time.Time) Result {
	url := p.urls.ResolveURL(ctx, &record, variant)

	p.logger.InfoContext(ctx, "certificate resolved",
		slog.String("variant", variant),
		slog.String("diamond_id", record.ID),
		logging.Elapsed(start))

	return Result{
		Found:          true,
		MatchedVariant: variant,
		Record:         &record,
		DestinationURL: url,
		Attempts:       attempts,
	}
}
