package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "voyya-dev-secret"

// StoreConfig selects the persistence backend shared by every process.
type StoreConfig struct {
	Driver        string // memory, postgres or sqlite
	DatabaseURL   string
	SQLitePath    string
	RunMigrations bool
}

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Store StoreConfig

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string
	RelayChannel  string

	KafkaBrokers []string
	KafkaTopic   string

	AMQPURL      string
	AMQPExchange string

	WebhookURL string
	WebhookKey string

	StripeAPIKey    string
	PaymentCurrency string

	OSRMEndpoint       string
	DefaultSpeedMps    float64
	ETACacheTTL        time.Duration
	NearbyRadiusMeters float64

	JWTSecret     string
	SessionTTL    time.Duration
	SessionCookie string
	OwnerOpenID   string
	AuthDevLogin  bool

	RideRequestTTL  time.Duration
	JanitorInterval time.Duration

	CORSOrigin string
	LogLevel   string
	LogFormat  string
}

// ConsumerConfig configures the Kafka location consumer.
type ConsumerConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	Store StoreConfig

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

func defaultStoreConfig() StoreConfig {
	return StoreConfig{Driver: "memory", SQLitePath: "data/voyya.db"}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:           ":8080",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        120 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		Store:              defaultStoreConfig(),
		RedisGeoKey:        "drivers_geo",
		RelayChannel:       "voyya:relay",
		KafkaTopic:         "driver-locations",
		AMQPExchange:       "ride_topic",
		PaymentCurrency:    "usd",
		DefaultSpeedMps:    8,
		ETACacheTTL:        5 * time.Minute,
		NearbyRadiusMeters: 5000,
		JWTSecret:          devJWTSecret,
		SessionTTL:         365 * 24 * time.Hour,
		SessionCookie:      "app_session_id",
		RideRequestTTL:     2 * time.Minute,
		JanitorInterval:    30 * time.Second,
		CORSOrigin:         "*",
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

func defaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "driver-locations",
		KafkaGroup:   "voyya-location-consumer",
		Store:        defaultStoreConfig(),
		RedisGeoKey:  "drivers_geo",
		MetricsAddr:  ":2112",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error
	loadDotEnv(&errs)

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	loadStore(&cfg.Store, &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	setStringFromEnv(&cfg.RelayChannel, "RELAY_CHANNEL")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	setStringFromEnv(&cfg.AMQPExchange, "AMQP_EXCHANGE")
	cfg.WebhookURL = strings.TrimSpace(os.Getenv("DISPATCH_WEBHOOK_URL"))
	cfg.WebhookKey = os.Getenv("DISPATCH_WEBHOOK_KEY")

	cfg.StripeAPIKey = strings.TrimSpace(os.Getenv("STRIPE_API_KEY"))
	setStringFromEnv(&cfg.PaymentCurrency, "PAYMENT_CURRENCY")
	cfg.PaymentCurrency = strings.ToLower(cfg.PaymentCurrency)

	cfg.OSRMEndpoint = strings.TrimSpace(os.Getenv("OSRM_ENDPOINT"))
	setFloatFromEnv(&cfg.DefaultSpeedMps, "ETA_DEFAULT_SPEED_MPS", &errs)
	setDurationFromEnv(&cfg.ETACacheTTL, "ETA_CACHE_TTL", &errs)
	setFloatFromEnv(&cfg.NearbyRadiusMeters, "NEARBY_RADIUS_METERS", &errs)

	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	setDurationFromEnv(&cfg.SessionTTL, "SESSION_TTL", &errs)
	setStringFromEnv(&cfg.SessionCookie, "SESSION_COOKIE")
	cfg.OwnerOpenID = strings.TrimSpace(os.Getenv("OWNER_OPEN_ID"))
	setBoolFromEnv(&cfg.AuthDevLogin, "AUTH_DEV_LOGIN", &errs)

	setDurationFromEnv(&cfg.RideRequestTTL, "RIDE_REQUEST_TTL", &errs)
	setDurationFromEnv(&cfg.JanitorInterval, "JANITOR_INTERVAL", &errs)

	setStringFromEnv(&cfg.CORSOrigin, "CORS_ORIGIN")
	loadLogging(&cfg.LogLevel, &cfg.LogFormat, &errs)

	if cfg.DefaultSpeedMps <= 0 {
		errs = append(errs, fmt.Errorf("ETA_DEFAULT_SPEED_MPS must be > 0"))
	}
	if cfg.NearbyRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("NEARBY_RADIUS_METERS must be > 0"))
	}
	if cfg.RideRequestTTL <= 0 {
		errs = append(errs, fmt.Errorf("RIDE_REQUEST_TTL must be > 0"))
	}
	if cfg.JanitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("JANITOR_INTERVAL must be > 0"))
	}
	if cfg.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// DevSecret reports whether tokens are signed with the built-in development secret.
func (c ServerConfig) DevSecret() bool { return c.JWTSecret == devJWTSecret }

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := defaultConsumerConfig()
	var errs []error
	loadDotEnv(&errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")

	loadStore(&cfg.Store, &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	loadLogging(&cfg.LogLevel, &cfg.LogFormat, &errs)

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list at least one broker"))
	}
	return cfg, errors.Join(errs...)
}

// loadDotEnv reads ENV_FILE (default .env) when it exists. Variables already set win.
func loadDotEnv(errs *[]error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		*errs = append(*errs, fmt.Errorf("load %s: %w", path, err))
	}
}

func loadStore(cfg *StoreConfig, errs *[]error) {
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = strings.TrimSpace(os.Getenv("PG_DSN"))
	}
	if cfg.DatabaseURL != "" {
		cfg.Driver = "postgres"
	}
	setStringFromEnv(&cfg.Driver, "STORE_DRIVER")
	cfg.Driver = strings.ToLower(cfg.Driver)
	setStringFromEnv(&cfg.SQLitePath, "SQLITE_PATH")
	setBoolFromEnv(&cfg.RunMigrations, "MIGRATE", errs)

	switch cfg.Driver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			*errs = append(*errs, fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL or PG_DSN"))
		}
	default:
		*errs = append(*errs, fmt.Errorf("invalid STORE_DRIVER %q: want memory, postgres or sqlite", cfg.Driver))
	}
}

func loadLogging(level, format *string, errs *[]error) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*level = strings.ToLower(v)
	}
	setStringFromEnv(format, "LOG_FORMAT")
	*format = strings.ToLower(*format)
	if *format != "json" && *format != "text" {
		*errs = append(*errs, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", *format))
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
