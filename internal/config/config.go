package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Workers  WorkersConfig  `mapstructure:"workers"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	Host          string `mapstructure:"host"`
	SessionCookie string `mapstructure:"session_cookie"`
}

// CatalogConfig describes where the product feed lives
type CatalogConfig struct {
	CSVURL           string `mapstructure:"csv_url"`
	PlaceholderImage string `mapstructure:"placeholder_image"`
	DefaultCurrency  string `mapstructure:"default_currency"`
	Timeout          int    `mapstructure:"timeout"`
}

// PaymentConfig holds the payment-session endpoint and Stripe keys
type PaymentConfig struct {
	APIBase              string `mapstructure:"api_base"`
	PublishableKey       string `mapstructure:"publishable_key"`
	SecretKey            string `mapstructure:"secret_key"`
	ReturnURL            string `mapstructure:"return_url"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
}

// PricingConfig is the shipping, tax and coupon policy
type PricingConfig struct {
	FreeShippingThreshold int64                   `mapstructure:"free_shipping_threshold"`
	ShippingRates         map[string]int64        `mapstructure:"shipping_rates"`
	TaxRates              map[string]float64      `mapstructure:"tax_rates"`
	Coupons               map[string]CouponConfig `mapstructure:"coupons"`
}

// CouponConfig is one entry of the coupon table
type CouponConfig struct {
	Kind  string `mapstructure:"kind"`
	Value int64  `mapstructure:"value"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// WorkersConfig sizes the order worker pool
type WorkersConfig struct {
	Count int `mapstructure:"count"`
}

// Load reads config.yaml from the working directory with environment
// variable overrides. A missing file leaves the defaults in place.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the given file, or config.yaml from the working directory
// when path is empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Catalog.CSVURL == "" {
		return fmt.Errorf("catalog.csv_url must not be empty")
	}
	if c.Pricing.FreeShippingThreshold < 0 {
		return fmt.Errorf("pricing.free_shipping_threshold must not be negative")
	}
	for code, coupon := range c.Pricing.Coupons {
		switch coupon.Kind {
		case "percent", "fixed", "free_shipping":
		default:
			return fmt.Errorf("pricing.coupons.%s: unknown kind %q", code, coupon.Kind)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.session_cookie", "sid")

	v.SetDefault("catalog.csv_url", "http://localhost:8080/data/products.csv")
	v.SetDefault("catalog.placeholder_image", "https://placehold.co/300x200?text=Image")
	v.SetDefault("catalog.default_currency", "AUD")
	v.SetDefault("catalog.timeout", 15)

	v.SetDefault("payment.api_base", "http://localhost:8787")
	v.SetDefault("payment.publishable_key", "")
	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.return_url", "http://localhost:8080/checkout")
	v.SetDefault("payment.timeout", 30)
	v.SetDefault("payment.max_requests_per_second", 5)

	v.SetDefault("pricing.free_shipping_threshold", 15000)
	// Map keys are lower case, matching how viper reads them from files
	v.SetDefault("pricing.shipping_rates", map[string]interface{}{
		"standard": 995,
		"express":  1995,
		"pickup":   0,
	})
	v.SetDefault("pricing.tax_rates", map[string]interface{}{
		"au": 0.10,
	})
	v.SetDefault("pricing.coupons", map[string]interface{}{
		"welcome10": map[string]interface{}{"kind": "percent", "value": 10},
		"save20":    map[string]interface{}{"kind": "fixed", "value": 2000},
		"freeship":  map[string]interface{}{"kind": "free_shipping", "value": 1},
	})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.user", "storefront_user")
	v.SetDefault("database.password", "storefront_pass")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "storefront_orders")
	v.SetDefault("redis.min_idle_time", 120)
	v.SetDefault("redis.key_prefix", "storefront")

	v.SetDefault("workers.count", 2)
}
