package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "storefront/pkg/platform/strings"
)

// DefaultAdminEmail is the single storefront administrator when ADMIN_EMAILS
// is unset.
const DefaultAdminEmail = "administrador@onpromotion.com"

// DevSigningKey is the development token key; production refuses it.
const DevSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Env      string
	LogLevel string
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	Kafka    KafkaConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	SecureCookies   bool
	ShutdownTimeout time.Duration
}

// PostgresConfig selects the SQL stores. An empty URL selects in-memory stores.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig configures session tokens and the admin allowlist.
type AuthConfig struct {
	JWTSigningKey string
	Issuer        string
	SessionTTL    time.Duration
	AdminEmails   []string
}

// CartConfig selects where device carts are persisted: memory, redis or file.
// IdleTTL is how long an untouched cart stays cached in the process.
type CartConfig struct {
	Slot    string
	SlotDir string
	SlotTTL time.Duration
	IdleTTL time.Duration
}

// CheckoutConfig bounds the order write and receipt render.
type CheckoutConfig struct {
	SubmitTimeout time.Duration
	RenderTimeout time.Duration
}

// KafkaConfig configures order event publishing. No brokers means events are
// only logged.
type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	duration := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return def
		}
		return n
	}

	cfg := Config{
		Env:      envOr("APP_ENV", "development"),
		LogLevel: envOr("LOG_LEVEL", "info"),
		Server: Server{
			Addr:            envOr("STOREFRONT_ADDR", ":8080"),
			SecureCookies:   os.Getenv("SECURE_COOKIES") == "true",
			ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: integer("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: AuthConfig{
			// Use a default for development - should be overridden in production
			JWTSigningKey: envOr("JWT_SIGNING_KEY", DevSigningKey),
			Issuer:        envOr("JWT_ISSUER", "storefront"),
			SessionTTL:    duration("SESSION_TTL", 24*time.Hour),
			AdminEmails:   platformstrings.SplitList(envOr("ADMIN_EMAILS", DefaultAdminEmail)),
		},
		Cart: CartConfig{
			Slot:    envOr("CART_SLOT", "memory"),
			SlotDir: envOr("CART_SLOT_DIR", "./data/carts"),
			SlotTTL: duration("CART_SLOT_TTL", 30*24*time.Hour),
			IdleTTL: duration("CART_IDLE_TTL", 30*time.Minute),
		},
		Checkout: CheckoutConfig{
			SubmitTimeout: duration("CHECKOUT_SUBMIT_TIMEOUT", 10*time.Second),
			RenderTimeout: duration("CHECKOUT_RENDER_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			OrderTopic: envOr("KAFKA_ORDER_TOPIC", "storefront.orders"),
		},
	}

	switch cfg.Cart.Slot {
	case "memory", "redis", "file":
	default:
		errs = append(errs, fmt.Sprintf("CART_SLOT: unknown slot %q", cfg.Cart.Slot))
	}
	if cfg.Cart.Slot == "redis" && cfg.Redis.URL == "" {
		errs = append(errs, "CART_SLOT=redis requires REDIS_URL")
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
