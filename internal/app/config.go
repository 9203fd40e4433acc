package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Cart storage backends.
const (
	CartStoreMemory = "memory"
	CartStoreFile   = "file"
	CartStoreRedis  = "redis"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// DatabaseURL is optional. Without it the catalog reports the data store
	// as unavailable and admin routes answer 503.
	DatabaseURL string `usage:"PostgreSQL connection URL (STOREFRONT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Migrate     bool   `default:"true" usage:"Apply the embedded schema on start"`
	Redis       RedisConfig
	CartStore   CartStoreConfig
	Catalog     CatalogConfig
	Checkout    CheckoutConfig
	Admin       AdminConfig
	Uploads     UploadsConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	Health      HealthConfig
}

// RedisConfig configures the Redis connection used for cart storage.
type RedisConfig struct {
	URL    string        `usage:"Redis URL (STOREFRONT_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	Prefix string        `default:"storefront:cart:" usage:"Key prefix of persisted carts"`
	TTL    time.Duration `default:"720h" usage:"Expiry of persisted carts"`
}

// CartStoreConfig selects where carts are persisted.
type CartStoreConfig struct {
	Backend       string        `default:"memory" usage:"Cart storage backend: memory, file or redis" flag:"cart-store"`
	Dir           string        `default:"data/carts" usage:"Directory of the file cart store"`
	IdleTimeout   time.Duration `default:"30m" usage:"Evict in-memory carts idle for this long"`
	SaveTimeout   time.Duration `default:"2s" usage:"Timeout of a single cart read or write"`
	SecureCookie  bool          `default:"false" usage:"Mark the cart session cookie Secure"`
	SessionMaxAge time.Duration `default:"720h" usage:"Lifetime of the cart session cookie"`
}

// CatalogConfig controls catalog fetching.
type CatalogConfig struct {
	FetchTimeout    time.Duration `default:"10s" usage:"Timeout of a single collection fetch"`
	MaxRetries      uint          `default:"2" usage:"Retries after a failed collection fetch"`
	InitialBackoff  time.Duration `default:"200ms" usage:"First retry delay"`
	MaxBackoff      time.Duration `default:"2s" usage:"Largest retry delay"`
	// RefreshInterval reloads the catalog periodically. Zero disables it.
	RefreshInterval time.Duration `default:"0s" usage:"Periodic catalog reload interval"`
}

// CheckoutConfig controls checkout.
type CheckoutConfig struct {
	Delay time.Duration `default:"1500ms" usage:"Simulated payment processing delay"`
}

// AdminConfig configures the admin password gate.
type AdminConfig struct {
	// PasswordDigest is the hex HMAC-SHA256 of the admin password keyed by
	// Pepper. Empty disables the admin API.
	PasswordDigest string `usage:"Hex HMAC-SHA256 digest of the admin password" flag:"admin-password-digest"`
	Pepper         string `usage:"HMAC pepper for the admin password digest" flag:"admin-pepper"`
}

// UploadsConfig configures the public upload directory.
type UploadsConfig struct {
	Dir     string `default:"data/uploads" usage:"Directory uploaded files are written to"`
	BaseURL string `default:"/uploads" usage:"Public URL prefix of uploaded files"`
	MaxSize int64  `default:"5242880" usage:"Largest accepted upload in bytes"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (the cart session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// HealthConfig controls background health checks.
type HealthConfig struct {
	Interval time.Duration `default:"10s" usage:"Interval between health checks"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL, REDIS_URL and PORT
// to the application's STOREFRONT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	c.CartStore.Backend = strings.ToLower(strings.TrimSpace(c.CartStore.Backend))
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.CartStore.Backend {
	case CartStoreMemory, CartStoreFile:
	case CartStoreRedis:
		if c.Redis.URL == "" {
			return errors.New("redis cart store requires STOREFRONT_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown cart store backend %q", c.CartStore.Backend)
	}
	if c.Admin.PasswordDigest != "" && c.Admin.Pepper == "" {
		return errors.New("admin password digest requires a pepper")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.Checkout.Delay < 0 {
		return errors.New("checkout delay must not be negative")
	}
	if c.CartStore.SessionMaxAge < 0 {
		return errors.New("cart session max age must not be negative")
	}
	return nil
}
