// Package main is the entry point for the gigsahead server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/randytsao24/gigsahead/internal/alerts"
	"github.com/randytsao24/gigsahead/internal/api"
	"github.com/randytsao24/gigsahead/internal/cache"
	"github.com/randytsao24/gigsahead/internal/config"
	"github.com/randytsao24/gigsahead/internal/gigs"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/pipeline"
	"github.com/randytsao24/gigsahead/internal/ptv"
	"github.com/randytsao24/gigsahead/internal/traveltime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{Console: true}).Fatal("Configuration error", "error", err)
	}

	logBuffer := logging.NewRingBuffer(logging.DefaultBufferSize)
	log := logging.New(logging.Config{
		Level:    cfg.LogLevel,
		Console:  true,
		JSON:     !cfg.IsDevelopment(),
		FilePath: cfg.LogFile,
		Compress: true,
		Buffer:   logBuffer,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration error", "error", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Unknown timezone", "timezone", cfg.Timezone, "error", err)
	}
	problemRoutes, retryAll, err := cfg.ProblemRouteSet()
	if err != nil {
		log.Fatal("Configuration error", "error", err)
	}

	ctx := context.Background()

	// The disk layer is optional; without it responses are only held in memory.
	var store *cache.Store
	if cfg.DiskCachePath != "" {
		store, err = cache.OpenStore(ctx, cfg.DiskCachePath)
		if err != nil {
			log.Warn("Disk cache unavailable, continuing without it", "path", cfg.DiskCachePath, "error", err)
			store = nil
		} else {
			defer store.Close()
			if pruned, err := store.Prune(ctx, cfg.DiskCacheMaxAge()); err != nil {
				log.Warn("Disk cache prune failed", "error", err)
			} else if pruned > 0 {
				log.Info("Pruned stale disk cache entries", "count", pruned)
			}
		}
	}
	responseCache := cache.NewLayered(cfg.CacheTTL(), store, cfg.DiskCacheMaxAge(), log.With("component", "cache"))
	defer responseCache.Close()

	var exec ptv.Executor
	if cfg.UseRelay() {
		exec = ptv.NewRelayExecutor(cfg.PTV.RelayURL, cfg.HTTPTimeout())
		log.Info("Transit API via relay", "relay_url", cfg.PTV.RelayURL)
	} else {
		exec = ptv.NewSignedExecutor(cfg.PTV.BaseURL, cfg.PTV.DevID, cfg.PTV.APIKey, cfg.HTTPTimeout())
		log.Info("Transit API via signed requests", "base_url", cfg.PTV.BaseURL)
	}
	transitClient := ptv.NewClient(exec, responseCache, log.With("component", "ptv"))

	gigsClient := gigs.NewClient(cfg.Gigs.BaseURL, cfg.HTTPTimeout(), cfg.CacheTTL(), log.With("component", "gigs"))
	defer gigsClient.Close()

	feeds := make(map[models.RouteType]string)
	for _, rt := range models.KnownRouteTypes {
		if u, ok := cfg.AlertFeedURL(rt); ok {
			feeds[rt] = u
		}
	}
	alertSvc := alerts.NewService(feeds, cfg.Alerts.APIKey, cfg.HTTPTimeout(), cfg.CacheTTL(), log.With("component", "alerts"))
	defer alertSvc.Close()
	if len(feeds) == 0 {
		log.Warn("No service alert feeds configured; /api/alerts will answer 404")
	}

	estimator := traveltime.NewEstimator(transitClient, loc, log.With("component", "traveltime"))

	planner := pipeline.New(transitClient, gigsClient, estimator, log.With("component", "pipeline"), pipeline.Options{
		EventLocation:  cfg.Gigs.Location,
		Location:       loc,
		MaxConcurrency: cfg.EstimateConcurrency,
		ProblemRoutes:  problemRoutes,
		RetryAllRoutes: retryAll,
	})

	router := api.NewRouter(cfg, api.Services{
		Catalog: transitClient,
		Planner: planner,
		Alerts:  alertSvc,
		Logs:    logBuffer,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("gigsahead server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"timezone", cfg.Timezone,
			"url", "http://localhost:"+cfg.Port,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
}
