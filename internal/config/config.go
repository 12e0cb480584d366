// Package config loads runtime configuration from an optional YAML file overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"

	defaultAddr       = ":8080"
	defaultTxTimeout  = 10 * time.Second
	defaultCollection = "orders"
	defaultKafkaTopic = "dropship"
)

type Config struct {
	ServiceName string `yaml:"serviceName"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"logLevel"`
	LogFile     string `yaml:"logFile"`

	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Tracing    TracingConfig    `yaml:"tracing"`

	// AutoApplyStatus lets the status sync worker write suggestions without an operator.
	AutoApplyStatus bool `yaml:"autoApplyStatus"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type StoreConfig struct {
	Driver              string        `yaml:"driver"`
	TxTimeout           time.Duration `yaml:"txTimeout"`
	PostgresDSN         string        `yaml:"postgresDsn"`
	FirestoreProjectID  string        `yaml:"firestoreProjectId"`
	FirestoreCollection string        `yaml:"firestoreCollection"`
	// SeedFile lists placed orders to insert at startup; existing orders are left untouched.
	SeedFile            string        `yaml:"seedFile"`
}

// RedisConfig enables the redis settings source and availability set when Addr is set.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	SettingsKey     string `yaml:"settingsKey"`
	AvailabilityKey string `yaml:"availabilityKey"`
}

// KafkaConfig mirrors domain events to Kafka when Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topicPrefix"`
}

type ThresholdsConfig struct {
	MinimumOrderAmount string `yaml:"minimumOrderAmount"`
	MinimumItemCount   int    `yaml:"minimumItemCount"`
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
}

func Default() Config {
	return Config{
		ServiceName: "dropship-fulfillment",
		Env:         "dev",
		LogLevel:    "info",
		HTTP:        HTTPConfig{Addr: defaultAddr, ShutdownTimeout: 10 * time.Second},
		Store: StoreConfig{
			Driver:              StoreMemory,
			TxTimeout:           defaultTxTimeout,
			FirestoreCollection: defaultCollection,
		},
		Kafka:      KafkaConfig{TopicPrefix: defaultKafkaTopic},
		Thresholds: ThresholdsConfig{MinimumOrderAmount: "0"},
	}
}

// Load reads CONFIG_FILE when set, applies environment overrides and validates the result.
func Load() (Config, error) {
	return load(os.Getenv, os.ReadFile)
}

func load(getenv func(string) string, readFile func(string) ([]byte, error)) (Config, error) {
	cfg := Default()
	if path := getenv("CONFIG_FILE"); path != "" {
		raw, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SERVICE_NAME", &c.ServiceName)
	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("STORE_DRIVER", &c.Store.Driver)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)
	str("FIRESTORE_PROJECT_ID", &c.Store.FirestoreProjectID)
	str("FIRESTORE_COLLECTION", &c.Store.FirestoreCollection)
	str("STORE_SEED_FILE", &c.Store.SeedFile)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("KAFKA_TOPIC_PREFIX", &c.Kafka.TopicPrefix)
	str("MINIMUM_ORDER_AMOUNT", &c.Thresholds.MinimumOrderAmount)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("MINIMUM_ITEM_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MINIMUM_ITEM_COUNT: %w", err)
		}
		c.Thresholds.MinimumItemCount = n
	}
	if v := getenv("AUTO_APPLY_STATUS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: AUTO_APPLY_STATUS: %w", err)
		}
		c.AutoApplyStatus = b
	}
	if v := getenv("TX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: TX_TIMEOUT: %w", err)
		}
		c.Store.TxTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres store requires POSTGRES_DSN"))
		}
	case StoreFirestore:
		if c.Store.FirestoreProjectID == "" {
			errs = append(errs, errors.New("firestore store requires FIRESTORE_PROJECT_ID"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.TxTimeout <= 0 {
		errs = append(errs, errors.New("transaction timeout must be positive"))
	}
	if _, err := c.MinimumOrderAmount(); err != nil {
		errs = append(errs, err)
	}
	if c.Thresholds.MinimumItemCount < 0 {
		errs = append(errs, errors.New("minimum item count must be zero or greater"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) MinimumOrderAmount() (decimal.Decimal, error) {
	v := c.Thresholds.MinimumOrderAmount
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("minimum order amount %q: %w", v, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("minimum order amount %q must be zero or greater", v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
