// README: Entry point; loads config, wires services, starts HTTP server and the quote expiry monitor.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coachquote/internal/config"
	httptransport "coachquote/internal/http"
	"coachquote/internal/http/handlers"
	"coachquote/internal/infra"
	"coachquote/internal/logging"
	"coachquote/internal/maps"
	"coachquote/internal/modules/pricing"
	"coachquote/internal/modules/quote"
	"coachquote/internal/modules/ratetable"
	"coachquote/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      "stderr",
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		logger.Fatal("COACHQUOTE_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.Credentials)
	if err != nil {
		logger.Fatal("firebase init", zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer dbPool.Close()

	recorder := metrics.New(prometheus.DefaultRegisterer)

	var sources rateSources
	if cfg.RateTables.File != "" {
		fileSource, err := ratetable.NewFileSource(cfg.RateTables.File)
		if err != nil {
			logger.Fatal("rate tables", zap.Error(err), zap.String("file", cfg.RateTables.File))
		}
		sources = fileRateSources(fileSource)
		logger.Info("rate tables loaded from file", zap.String("file", cfg.RateTables.File))
	} else {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer redisClient.Close()
		pgStore := ratetable.NewPGStore(dbPool)
		sources = cachedRateSources(pgStore, ratetable.NewCachedSource(redisClient, pgStore, cfg.RateTables.CacheTTL, recorder, logger))
	}

	pricingSvc := pricing.NewService(ratetable.ForPricing(sources.pricing), recorder, logger)

	var router quote.Router
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey, "fr")
		if err != nil {
			logger.Fatal("maps client", zap.Error(err))
		}
		router = routeSvc
	} else {
		logger.Warn("COACHQUOTE_MAPS_API_KEY not set; quotes need explicit distance and drive time")
	}

	quoteStore := quote.NewStore(dbPool)
	quoteSvc := quote.NewService(quoteStore, pricingSvc, router, quote.Config{
		Validity:   cfg.Quotes.Validity,
		ExpiryTick: cfg.Quotes.ExpiryTick,
	}, recorder, logger)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Pricing:  pricingSvc,
		Quotes:   quoteSvc,
		Rates:    sources.stored,
		Cache:    sources.cache,
		Verifier: verifier,
		Metrics:  prometheus.DefaultGatherer,
		Logger:   logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go quoteSvc.RunExpiryMonitor(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}

// rateSources splits rate-table access: pricing may go through the cache, while the
// validate endpoint reads the store itself.
type rateSources struct {
	pricing ratetable.Source
	stored  ratetable.Source
	cache   handlers.Invalidator
}

func fileRateSources(file ratetable.Source) rateSources {
	return rateSources{pricing: file, stored: file}
}

func cachedRateSources(store ratetable.Source, cached *ratetable.CachedSource) rateSources {
	return rateSources{pricing: cached, stored: store, cache: cached}
}
