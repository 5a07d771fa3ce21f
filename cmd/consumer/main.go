package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/voyya/internal/config"
	"github.com/example/voyya/internal/geo"
	"github.com/example/voyya/internal/ingest"
	"github.com/example/voyya/internal/logging"
	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/observability"
	"github.com/example/voyya/internal/service"
	"github.com/example/voyya/internal/storage"
)

// LocationRecorder persists one streamed driver location.
type LocationRecorder interface {
	Record(ctx context.Context, loc models.DriverLocation) error
}

// MessageReader is the subset of *kafka.Reader the consumer loop uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.SQLitePath, cfg.Store.RunMigrations)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if cfg.Store.Driver == "memory" {
		logger.Warn("consumer is using the in-memory store, locations will not reach the API process")
	}

	var rdb *redis.Client
	var index geo.Index = geo.NewMemoryIndex()
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		index = geo.NewRedisIndex(rdb, cfg.RedisGeoKey)
	}
	drivers := service.New(service.Deps{Store: store, Index: index, Log: logger}).Drivers

	go serveMetrics(cfg.MetricsAddr, store, rdb, logger)

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroup,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer r.Close()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)
	consume(ctx, r, drivers, logger)
	logger.Info("shutting down consumer")
}

func serveMetrics(addr string, store storage.Store, rdb *redis.Client, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, "database not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	logger.Info("metrics/health listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

// consume reads until ctx ends, backing off on read errors.
func consume(ctx context.Context, r MessageReader, rec LocationRecorder, logger *slog.Logger) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		result := handleMessage(ctx, rec, m, logger)
		observability.ConsumerMessages.WithLabelValues(result).Inc()
	}
}

// handleMessage decodes and records one message and returns its metrics label.
func handleMessage(ctx context.Context, rec LocationRecorder, m kafka.Message, logger *slog.Logger) string {
	loc, err := ingest.DecodeLocation(m.Value)
	if err != nil {
		logger.Warn("invalid message", "error", err, "offset", m.Offset)
		return "invalid"
	}
	if err := recordWithRetry(ctx, rec, loc, 3, 200*time.Millisecond); err != nil {
		logger.Warn("record location failed", "driver_id", loc.DriverID, "error", err)
		if permanent(err) {
			return "rejected"
		}
		return "error"
	}
	observability.DriverLocationUpdates.WithLabelValues("stream").Inc()
	return "ok"
}

// recordWithRetry records loc, retrying transient failures with doubling delays.
func recordWithRetry(ctx context.Context, rec LocationRecorder, loc models.DriverLocation, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = rec.Record(ctx, loc); err == nil || permanent(err) {
			return err
		}
		if i == attempts-1 || !sleep(ctx, delay) {
			break
		}
		delay *= 2
	}
	return err
}

// permanent errors will not go away on retry: unknown driver or bad data.
func permanent(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalid)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
