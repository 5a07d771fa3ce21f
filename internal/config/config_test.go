package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points ENV_FILE at a missing file and clears keys a developer shell may carry.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{"DATABASE_URL", "PG_DSN", "STORE_DRIVER", "KAFKA_BROKERS", "LOG_FORMAT", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
}

func TestLoadServerConfigDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store.Driver != "memory" || cfg.RideRequestTTL != 2*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SessionCookie != "app_session_id" || cfg.AMQPExchange != "ride_topic" || !cfg.DevSecret() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/voyya")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("RIDE_REQUEST_TTL", "90s")
	t.Setenv("AUTH_DEV_LOGIN", "true")
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.Store.Driver != "postgres" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.RideRequestTTL != 90*time.Second || !cfg.AuthDevLogin || cfg.PaymentCurrency != "eur" || cfg.DevSecret() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadServerConfigJoinsErrors(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("NEARBY_RADIUS_METERS", "-1")

	_, err := LoadServerConfig()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"HTTP_READ_TIMEOUT", "STORE_DRIVER", "NEARBY_RADIUS_METERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestPostgresRequiresDSN(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_DRIVER", "postgres")
	if _, err := LoadServerConfig(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DSN error, got %v", err)
	}
}

func TestDotEnvFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SQLITE_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "")
	os.Unsetenv("SQLITE_PATH")
	t.Cleanup(func() { os.Unsetenv("SQLITE_PATH") })

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.SQLitePath != "/tmp/from-dotenv.db" {
		t.Fatalf("dotenv value not loaded: %q", cfg.Store.SQLitePath)
	}
}

func TestLoadConsumerConfig(t *testing.T) {
	isolate(t)
	t.Setenv("KAFKA_GROUP", "g1")
	t.Setenv("METRICS_ADDR", ":9999")
	cfg, err := LoadConsumerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KafkaGroup != "g1" || cfg.MetricsAddr != ":9999" || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected consumer config: %+v", cfg)
	}
}
