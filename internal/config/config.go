package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	envcfg "github.com/Skotchmaster/storefront/pkg/config"
)

type Config struct {
	APIBaseURL       string
	PaymentPublicKey string
	Currency         string
	ItemsPerPage     int
	RequestTimeout   time.Duration
	MediaCacheSize   int

	SessionDSN string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CountriesURL string

	ListenAddr            string
	LogLevel              string
	CheckoutRedirectDelay time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("env_file_not_found", "reason", "using process environment", "error", err)
	}

	cfg := &Config{
		APIBaseURL:       envcfg.EnvDefault("API_BASE_URL", ""),
		PaymentPublicKey: envcfg.EnvDefault("PAYMENT_PUBLIC_KEY", ""),
		Currency:         envcfg.EnvDefault("CURRENCY", "usd"),
		ItemsPerPage:     envcfg.EnvIntDefault("ITEMS_PER_PAGE", 18),
		RequestTimeout:   envcfg.EnvDurationDefault("REQUEST_TIMEOUT", 15*time.Second),
		MediaCacheSize:   envcfg.EnvIntDefault("MEDIA_CACHE_SIZE", 256),

		SessionDSN: envcfg.EnvDefault("SESSION_DSN", "storefront.db"),

		KafkaBrokers: envcfg.CSV(envcfg.EnvDefault("KAFKA_BROKERS", "")),

		ESURL:      envcfg.EnvDefault("ES_URL", ""),
		ESUser:     envcfg.EnvDefault("ES_USER", ""),
		ESPassword: envcfg.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    envcfg.EnvDefault("ES_INDEX", "product"),

		CountriesURL: envcfg.EnvDefault("COUNTRIES_URL", "https://restcountries.com/v3.1/all"),

		ListenAddr:            envcfg.EnvDefault("LISTEN_ADDR", ":8080"),
		LogLevel:              envcfg.EnvDefault("LOG_LEVEL", "info"),
		CheckoutRedirectDelay: envcfg.EnvDurationDefault("CHECKOUT_REDIRECT_DELAY", 2*time.Second),
	}
	if cfg.ItemsPerPage < 1 {
		cfg.ItemsPerPage = 18
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return envcfg.Required(map[string]string{
		"API_BASE_URL":       c.APIBaseURL,
		"PAYMENT_PUBLIC_KEY": c.PaymentPublicKey,
	})
}
