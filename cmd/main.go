package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridehail/internal/config"
	"ridehail/internal/dispatch"
	"ridehail/internal/drivers"
	"ridehail/internal/events"
	"ridehail/internal/logging"
	"ridehail/internal/observability"
	"ridehail/internal/rides"
	"ridehail/internal/tracking"
	"ridehail/migrations"
	"ridehail/pkg/auth"
	"ridehail/pkg/db"
	"ridehail/pkg/kafka"
	rredis "ridehail/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := auth.Init(cfg.JWTSecret); err != nil {
		log.Error("auth init failed", "error", err)
		os.Exit(1)
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		rideStore      rides.Store
		driverRegistry drivers.Registry
	)
	if cfg.PGDSN != "" {
		database, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer database.Close()

		if cfg.RunMigrations {
			if err := database.RunMigrations(ctx, migrations.FS); err != nil {
				log.Error("migrations failed", "error", err)
				os.Exit(1)
			}
		}
		rideStore = rides.NewPostgresStore(database.Pool)
		driverRegistry = drivers.NewPostgresRegistry(database.Pool)
	} else {
		log.Info("PG_DSN not set, using in-memory stores")
		rideStore = rides.NewMemoryStore()
		driverRegistry = drivers.NewMemoryRegistry()
	}

	// Redis geo index, optional.
	var geoIndex drivers.GeoIndex
	if cfg.RedisAddr != "" {
		redisClient, err := rredis.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		geoIndex = redisClient
	}

	// Kafka journal, optional.
	var (
		rideJournal     rides.Journal
		dispatchJournal dispatch.Journal
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
		if err := kafkaClient.EnsureTopics(ctx,
			kafka.TopicRideRequested,
			kafka.TopicDriverAssigned,
			kafka.TopicRideCompleted,
		); err != nil {
			log.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		rideJournal = kafkaClient
		dispatchJournal = kafkaClient

		audit := rides.NewCompletionAudit(log)
		kafkaClient.Subscribe(ctx, kafka.TopicRideCompleted, "ridehail-settlement", audit.HandleMessage)
	}

	hub := tracking.NewHub(log)
	var bus events.Bus = hub

	driverSvc := drivers.NewService(driverRegistry, geoIndex, activeRideLookup{rideStore}, bus, log)
	lifecycle := rides.NewLifecycle(rideStore, driverSvc, bus, rideJournal, log)
	dispatcher := dispatch.NewService(rideStore, driverSvc, bus, dispatchJournal, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observability.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"ridehail"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/rides", rides.NewHandler(dispatcher, lifecycle, rideStore).Routes())
		r.Mount("/drivers", drivers.NewHandler(driverSvc).Routes())
	})
	r.Mount("/ws", hub.Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	cancel()
}

// activeRideLookup adapts the ride store to the lookup the driver
// service uses for location fan-out.
type activeRideLookup struct {
	store rides.Store
}

func (a activeRideLookup) ActiveByDriver(ctx context.Context, driverID string) (string, string, bool, error) {
	ride, err := a.store.ActiveByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, rides.ErrNotFound) {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return ride.ID, ride.PassengerID, true, nil
}
