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

	"github.com/redis/go-redis/v9"

	"github.com/example/voyya/internal/auth"
	"github.com/example/voyya/internal/config"
	"github.com/example/voyya/internal/dispatch"
	"github.com/example/voyya/internal/eta"
	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/geo"
	httpapi "github.com/example/voyya/internal/http"
	"github.com/example/voyya/internal/ingest"
	"github.com/example/voyya/internal/logging"
	"github.com/example/voyya/internal/payments"
	"github.com/example/voyya/internal/relay"
	"github.com/example/voyya/internal/service"
	"github.com/example/voyya/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	store, err := storage.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.SQLitePath, cfg.Store.RunMigrations)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store ready", "driver", cfg.Store.Driver)

	var rdb *redis.Client
	var index geo.Index = geo.NewMemoryIndex()
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable yet", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		index = geo.NewRedisIndex(rdb, cfg.RedisGeoKey)
	}

	estimator := &eta.Cached{
		Fallback: eta.Naive{SpeedMps: cfg.DefaultSpeedMps},
		Cache:    eta.NewCache(cfg.ETACacheTTL),
	}
	if cfg.OSRMEndpoint != "" {
		estimator.Primary = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}
	quoter := fare.NewQuoter(estimator)

	hub := relay.NewHub(logger)
	defer hub.Close()
	if cfg.CORSOrigin != "*" {
		hub.SetCheckOrigin(func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.CORSOrigin
		})
	}
	if rdb != nil {
		broker := relay.NewRedisBroker(rdb, cfg.RelayChannel, logger)
		hub.SetBroker(broker)
		go func() {
			if err := broker.Run(ctx, hub.Deliver); err != nil && ctx.Err() == nil {
				logger.Error("relay broker stopped", "error", err)
			}
		}()
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		hub.SetLocationSink(producer)
	}

	events := dispatch.Multi{dispatch.LogPublisher{Log: logger.With("component", "dispatch")}}
	if cfg.AMQPURL != "" {
		pub, err := dispatch.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, 5, logger)
		if err != nil {
			logger.Warn("amqp unavailable, lifecycle events are only logged", "error", err)
		} else {
			events = append(events, pub)
		}
	}
	if cfg.WebhookURL != "" {
		events = append(events, dispatch.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookKey))
	}
	defer events.Close()

	deps := service.Deps{
		Store:              store,
		Index:              index,
		Quoter:             quoter,
		Events:             events,
		Notifier:           hub,
		Log:                logger,
		RideRequestTTL:     cfg.RideRequestTTL,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
	}
	if cfg.StripeAPIKey != "" {
		deps.Payments = payments.NewStripeClient(cfg.StripeAPIKey, cfg.PaymentCurrency)
	}
	svc := service.New(deps)

	if cfg.DevSecret() {
		logger.Warn("JWT_SECRET not set, signing sessions with the development secret")
	}
	sessions := auth.NewSessions(store, auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL), cfg.OwnerOpenID)

	api := httpapi.NewServer(httpapi.Options{
		Services:      svc,
		Sessions:      sessions,
		Store:         store,
		Quoter:        quoter,
		Relay:         hub,
		Logger:        logger,
		SessionCookie: cfg.SessionCookie,
		SessionTTL:    cfg.SessionTTL,
		DevLogin:      cfg.AuthDevLogin,
		CORSOrigin:    cfg.CORSOrigin,
	})

	go svc.RideRequests.RunJanitor(ctx, cfg.JanitorInterval)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("voyya listening", "addr", cfg.HTTPAddr, "relay_instance", hub.InstanceID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
