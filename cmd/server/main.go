package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jafarshop/certsearch/internal/api"
	"github.com/jafarshop/certsearch/internal/certificate"
	"github.com/jafarshop/certsearch/internal/config"
	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/middleware"
	"github.com/jafarshop/certsearch/internal/nivoda"
	"github.com/jafarshop/certsearch/internal/resolver"
	"github.com/jafarshop/certsearch/internal/server"
	"github.com/jafarshop/certsearch/internal/storefront"
)

func main() {
	var cfg config.Config
	config.MustLoad(&cfg)

	log := logging.New(cfg.Log)

	tokens := nivoda.NewTokenSource(
		nivoda.PasswordAuthenticate(cfg.Nivoda.Endpoint, cfg.Nivoda.Username, cfg.Nivoda.Password,
			&http.Client{Timeout: cfg.Nivoda.Timeout}),
		nivoda.WithTokenTTL(cfg.Nivoda.TokenTTL),
	)
	upstream := nivoda.NewClient(
		cfg.Nivoda.Endpoint,
		cfg.Nivoda.Username,
		cfg.Nivoda.Password,
		nivoda.AuthMode(cfg.Nivoda.AuthMode),
		tokens,
		nivoda.WithTimeout(cfg.Nivoda.Timeout),
		nivoda.WithLogger(log.With(logging.Component("nivoda"))),
	)

	urlOpts := []storefront.ResolverOption{
		storefront.WithResolverLogger(log.With(logging.Component("storefront"))),
	}
	if cfg.Storefront.CatalogLookupEnabled() {
		catalog := storefront.NewClient(
			cfg.Storefront.ShopDomain,
			cfg.Storefront.AccessToken,
			cfg.Storefront.APIVersion,
			storefront.WithLogger(log.With(logging.Component("storefront"))),
		)
		urlOpts = append(urlOpts, storefront.WithCatalog(catalog))
	}
	urls := storefront.NewResolver(cfg.Storefront.ProductURLBase, urlOpts...)

	generator := certificate.New(
		certificate.WithLabPrefixes(cfg.Resolver.LabPrefixes),
		certificate.WithPadWidth(cfg.Resolver.PadWidth),
		certificate.WithMinLength(cfg.Resolver.MinLength),
	)

	pipeline := resolver.New(upstream, generator, urls,
		resolver.WithLogger(log.With(logging.Component("resolver"))),
		resolver.WithMatchLimit(cfg.Resolver.MatchLimit),
		resolver.WithDeadline(cfg.Resolver.Deadline),
		resolver.WithBatchQueries(cfg.Resolver.BatchQueries),
	)

	handler := api.New(pipeline, upstream, log.With(logging.Component("api"))).Routes(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    log,
			SkipPaths: []string{"/health"},
		}),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSAllowedOrigins,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err := srv.Run(ctx, handler); err != nil {
		log.Error("server error", logging.Error(err))
		os.Exit(1)
	}
}
