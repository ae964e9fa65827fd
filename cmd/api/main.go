package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/zonemap/internal/adapters/http"
	"github.com/samirrijal/zonemap/internal/adapters/memory"
	natsadapter "github.com/samirrijal/zonemap/internal/adapters/nats"
	"github.com/samirrijal/zonemap/internal/adapters/valkey"
	"github.com/samirrijal/zonemap/internal/bootstrap"
	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/core/usecases"
	"github.com/samirrijal/zonemap/internal/pkg/config"
	"github.com/samirrijal/zonemap/internal/pkg/logging"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
	"github.com/samirrijal/zonemap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("zonemap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Gazetteer, loaded once for the life of the process.
	resolver, db, err := bootstrap.Resolver(ctx, cfg)
	if err != nil {
		log.Fatalf("gazetteer: %v", err)
	}
	metrics.RegisterFuzzyScans(resolver.Scans)
	for _, kind := range []domain.PlaceKind{domain.KindCountry, domain.KindCity} {
		metrics.GazetteerEntries.WithLabelValues(string(kind)).Set(float64(resolver.Gazetteer().Len(kind)))
	}

	deps := &http.Dependencies{}

	if db != nil {
		defer db.Close()
		deps.DB = db
		go reportPoolStats(ctx, db.Pool)
	}

	// Cache
	var cache *valkey.Cache
	var locCache ports.CacheService
	if cfg.Valkey.Addr != "" {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, resolving without cache", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			locCache = cache
			deps.Cache = cache
		}
	}

	locations := usecases.NewLocationService(resolver, locCache)
	deps.Locations = locations

	// Camera commands go through NATS when it is configured so that widgets
	// connected to another instance still receive them.
	var sink ports.CameraSink
	var sub *natsadapter.Subscriber
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		sink = pub
		deps.Feed = natsadapter.NewCameraFeed(pub.Conn())
		deps.NATS = pub.Conn()

		sub, err = natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer sub.Close()
	} else {
		slog.Info("nats not configured, using in-process camera hub")
		hub := memory.NewCameraHub()
		sink = hub
		deps.Feed = hub
	}

	viewports := usecases.NewViewportService(locations, sink, usecases.ViewportOptions{
		Epsilon:  cfg.Viewport.Epsilon,
		Duration: time.Duration(cfg.Viewport.AnimationSeconds * float64(time.Second)),
	})
	deps.Viewports = viewports

	if sub != nil {
		subscribe(ctx, sub, viewports, cache)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Zonemap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowOrigins, ","),
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "Location, Link, ETag, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "gazetteer", cfg.Gazetteer.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	viewports.CloseAll()

	slog.Info("server stopped")
}

// subscribe wires the broker events this instance reacts to.
func subscribe(ctx context.Context, sub *natsadapter.Subscriber, viewports *usecases.ViewportService, cache *valkey.Cache) {
	err := sub.SubscribeHighlights(ctx, func(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error {
		loc, outcome, err := viewports.HighlightCountry(ctx, viewportID, h)
		switch {
		case errors.Is(err, usecases.ErrViewportNotFound):
			// Open on another instance.
			return nil
		case errors.Is(err, domain.ErrLocationNotFound):
			slog.Warn("highlight for unknown country", "viewport", viewportID, "country", h.Country)
			return nil
		case err != nil:
			return err
		}
		slog.Debug("external highlight applied", "viewport", viewportID, "location", loc.Label, "outcome", outcome)
		return nil
	})
	if err != nil {
		slog.Error("subscribe highlights", "error", err)
	}

	err = sub.SubscribeGazetteerUpdates(ctx, func(ctx context.Context, evt *domain.GazetteerUpdated) error {
		if cache != nil {
			n, err := cache.DeletePrefix(ctx, usecases.ResolveCachePrefix)
			if err != nil {
				return fmt.Errorf("flush resolve cache: %w", err)
			}
			slog.Info("resolve cache flushed", "keys", n)
		}
		slog.Warn("new gazetteer version activated, restart to serve it",
			"version", evt.Version, "entries", evt.Entries)
		return nil
	})
	if err != nil {
		slog.Error("subscribe gazetteer updates", "error", err)
	}
}

// reportPoolStats refreshes the db pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(pool.Stat())
		}
	}
}
