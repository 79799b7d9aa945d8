package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	echoapi "go.pilab.hu/flow/api/echo"
	"go.pilab.hu/flow/cache"
	cacheredis "go.pilab.hu/flow/cache/redis"
	"go.pilab.hu/flow/config"
	"go.pilab.hu/flow/domain"
	"go.pilab.hu/flow/flowengine"
	"go.pilab.hu/flow/internal/metrics"
	"go.pilab.hu/flow/internal/server"
	"go.pilab.hu/flow/mongodb"
	"go.pilab.hu/flow/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("state_store", cfg.StateStore).
		Str("log_level", cfg.LogLevel).
		Msg("Starting flow-engine server")

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TracerProvider")
	}

	ctx := context.Background()

	repo, cleanup, err := newStateRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize state store")
	}

	metrics.Register(prometheus.DefaultRegisterer)

	scheduler := flowengine.NewTTLScheduler()
	engine := flowengine.NewEngine(repo, scheduler,
		flowengine.WithDefaultTTL(time.Duration(cfg.FlowTTLMin)*time.Minute))

	flowAPI := echoapi.NewFlowAPI(engine)
	httpServer := server.NewHTTPServer(cfg, flowAPI)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatal().Err(serveErr).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	scheduler.Stop()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("TracerProvider shutdown failed")
	}
	cleanup(shutdownCtx)
	log.Info().Msg("Shutdown complete")
}

func setupLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// newStateRepository builds the configured RuntimeState backend and returns
// it with its shutdown hook.
func newStateRepository(ctx context.Context, cfg *config.ServerConfig) (domain.RuntimeStateRepository, func(context.Context), error) {
	switch cfg.StateStore {
	case config.StateStoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		store := cacheredis.NewStateStore(client, cfg.RedisKeyPrefix)
		return store, func(context.Context) { _ = client.Close() }, nil

	case config.StateStoreMongo:
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			return nil, nil, err
		}
		repo, err := mongodb.NewRuntimeStateRepository(ctx, mongodb.GetDB())
		if err != nil {
			return nil, nil, err
		}
		return repo, func(shutdownCtx context.Context) {
			if err := mongodb.Disconnect(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("MongoDB disconnect failed")
			}
		}, nil

	default:
		store := cache.NewMemoryStateStore()
		return store, func(context.Context) { _ = store.Close() }, nil
	}
}
