package config

import (
	"time"

	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/server"
)

// Config is the full runtime configuration of the proxy.
type Config struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	// CORSAllowedOrigins is a comma-separated origin list; empty allows all.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Server     server.Config
	Log        logging.Config
	Nivoda     NivodaConfig
	Storefront StorefrontConfig
	Resolver   ResolverConfig
}

// NivodaConfig configures the supplier API client.
type NivodaConfig struct {
	Endpoint string        `env:"NIVODA_API_URL,required,notEmpty"`
	Username string        `env:"NIVODA_USERNAME,required,notEmpty"`
	Password string        `env:"NIVODA_PASSWORD,required,notEmpty"`
	AuthMode string        `env:"NIVODA_AUTH_MODE" envDefault:"bearer"` // basic or bearer
	TokenTTL time.Duration `env:"NIVODA_TOKEN_TTL" envDefault:"5h"`
	Timeout  time.Duration `env:"NIVODA_TIMEOUT" envDefault:"10s"`
}

// StorefrontConfig configures the Shopify side. Catalog lookup is enabled
// only when both the shop domain and access token are set; the deterministic
// slug strategy works without them.
type StorefrontConfig struct {
	ShopDomain     string `env:"SHOPIFY_SHOP_DOMAIN"`
	AccessToken    string `env:"SHOPIFY_ACCESS_TOKEN"`
	APIVersion     string `env:"SHOPIFY_API_VERSION" envDefault:"2024-10"`
	ProductURLBase string `env:"PRODUCT_URL_BASE,required,notEmpty"`
}

// ResolverConfig tunes variant generation and the resolution loop.
type ResolverConfig struct {
	LabPrefixes  []string      `env:"CERT_LAB_PREFIXES" envSeparator:"," envDefault:"LG,GIA,IGI,HRD,GCAL"`
	PadWidth     int           `env:"CERT_PAD_WIDTH" envDefault:"10"`
	MinLength    int           `env:"CERT_MIN_LENGTH" envDefault:"3"`
	MatchLimit   int           `env:"RESOLVER_MATCH_LIMIT" envDefault:"5"`
	Deadline     time.Duration `env:"RESOLVER_DEADLINE" envDefault:"30s"`
	BatchQueries bool          `env:"NIVODA_BATCH_QUERIES" envDefault:"false"`
}

// CatalogLookupEnabled reports whether the storefront catalog-lookup strategy
// can be used.
func (c StorefrontConfig) CatalogLookupEnabled() bool {
	return c.ShopDomain != "" && c.AccessToken != ""
}
