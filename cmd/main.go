// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and the sweeper.
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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-checkout/internal/cart"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout/steps"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/config"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/handler"
	"github.com/Shivanand-hulikatti/event-checkout/internal/ledger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/notification"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/event-checkout/internal/service"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
	"github.com/Shivanand-hulikatti/event-checkout/internal/sweeper"
)

const serviceName = "event-checkout"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	clk := clock.System{}

	// ── 1. Storage ────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Sessions and notifications ─────────────────────────────────────
	sessions, closeSessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	dispatcher, closeDispatcher := openDispatcher(cfg, clk, log)
	defer closeDispatcher()

	// ── 3. Checkout pipeline ──────────────────────────────────────────────
	validate := validator.New()
	seats := ledger.New(store.Registrations(), clk)
	carts := cart.NewService(store, sessions, clk)

	factory := checkout.NewFactory()
	err = factory.Define(checkout.DefaultType, steps.DefaultPipeline(
		steps.SubscriptionConfig{
			Store:      store,
			Carts:      carts,
			Ledger:     seats,
			Clock:      clk,
			Validators: steps.DefaultValidators(validate),
			Serialized: cfg.SerializedAdmission(),
			Logger:     log,
		},
		steps.FinalisationConfig{
			Store:         store,
			Carts:         carts,
			Sessions:      sessions,
			Clock:         clk,
			CompletionURL: cfg.CheckoutCompletionURL,
			Listeners:     steps.DefaultListeners(sessions, dispatcher, log),
			Logger:        log,
		},
	)...)
	if err != nil {
		return fmt.Errorf("define checkout pipeline: %w", err)
	}
	orch := checkout.NewOrchestrator(factory, store.Events(), sessions, checkout.Config{
		URLs: checkout.QueryURLBuilder(cfg.CheckoutStepParam),
	}, log)

	sw := sweeper.New(store.Sweeps(), clk, cfg.CheckoutLockingTime(), log)

	// ── 4. HTTP ───────────────────────────────────────────────────────────
	events := handler.NewEventHandler(
		service.NewEventService(store, seats, validate, clk),
		service.NewUnsubscribeService(store, dispatcher, clk, cfg.StrictStateTransitions, log),
		sw,
	)
	router := handler.NewRouter(events, handler.NewCheckoutHandler(orch, sessions, cfg.CheckoutStepParam), handler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		SecureCookies:  cfg.Environment != "development",
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 5. Run until a signal arrives ─────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			slog.Int("port", cfg.HTTPPort),
			slog.String("store_driver", cfg.StoreDriver),
			slog.String("session_driver", cfg.SessionDriver),
			slog.String("admission_mode", cfg.AdmissionMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sw.Run(gctx, cfg.SweepInterval())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres", slog.String("host", cfg.DB.Host), slog.String("database", cfg.DB.Name))

	if err := database.RunMigrations(ctx, pool, database.Migrations(), log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func openSessions(ctx context.Context, cfg *config.Config, log *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionDriver == config.DriverMemory {
		return session.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
	return session.NewRedisStore(client, cfg.SessionTTL()), func() { _ = client.Close() }, nil
}

func openDispatcher(cfg *config.Config, clk clock.Clock, log *slog.Logger) (notification.Dispatcher, func()) {
	if cfg.NotificationDriver != config.DriverKafka {
		return notification.NewLogDispatcher(log), func() {}
	}
	d := notification.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.NotificationTopic, clk, log)
	return d, func() {
		if err := d.Close(); err != nil {
			log.Error("close kafka writer", slog.String("error", err.Error()))
		}
	}
}
