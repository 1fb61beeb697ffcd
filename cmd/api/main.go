package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/aoiexplorer/internal/adapters/http"
	natsadapter "github.com/samirrijal/aoiexplorer/internal/adapters/nats"
	"github.com/samirrijal/aoiexplorer/internal/adapters/postgres"
	"github.com/samirrijal/aoiexplorer/internal/adapters/remote"
	"github.com/samirrijal/aoiexplorer/internal/adapters/valkey"
	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/ports"
	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
	"github.com/samirrijal/aoiexplorer/internal/pkg/config"
	"github.com/samirrijal/aoiexplorer/internal/pkg/logging"
	"github.com/samirrijal/aoiexplorer/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("aoi-explorer-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		Map: domain.MapView{
			Center: domain.GeoPoint{Lat: cfg.Map.CenterLat, Lon: cfg.Map.CenterLon},
			Zoom:   cfg.Map.Zoom,
		},
		Logger:  logger,
		Version: version,
	}

	// Remote statistics API, optionally behind the result cache
	timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	var transport ports.QueryTransport = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.PingPath, timeout)

	if cfg.Valkey.Enabled {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			logger.Warn("valkey unavailable, result cache disabled", "error", err)
		} else {
			defer cache.Close()
			transport = remote.NewCachedTransport(transport, cache, cfg.Valkey.TTLSeconds, logger)
			deps.Cache = cache
		}
	}

	// Query log
	var queryLog ports.QueryLogRepository
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		queryLog = postgres.NewQueryLogRepo(db)
		deps.DB = db
		deps.QueryLog = queryLog
	}

	hub := http.NewHub(logger)
	deps.Hub = hub
	drawTools := []ports.DrawTool{hub}
	publishers := []ports.SnapshotPublisher{hub}

	// NATS fan-out
	var natsPub *natsadapter.Publisher
	if cfg.NATS.Enabled {
		natsPub, err = natsadapter.NewPublisher(cfg.NATS.URL, logger)
		if err != nil {
			logger.Warn("nats unavailable", "error", err)
		} else {
			defer natsPub.Close()
			drawTools = append(drawTools, natsPub)
			publishers = append(publishers, natsPub)
			deps.NATS = natsPub
		}
	}

	selector, err := usecases.NewEndpointSelector(cfg.Endpoints)
	if err != nil {
		log.Fatalf("endpoints: %v", err)
	}

	machine, err := usecases.NewInteractionMachine(usecases.MachineDeps{
		Endpoints:      selector,
		Transport:      transport,
		DrawTools:      drawTools,
		Publishers:     publishers,
		QueryLog:       queryLog,
		RequestTimeout: timeout,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("interaction machine: %v", err)
	}
	deps.Machine = machine

	machineDone := make(chan struct{})
	go func() {
		defer close(machineDone)
		_ = machine.Run(ctx)
	}()

	// GeometryCapture events from NATS
	if natsPub != nil {
		sub := natsadapter.NewSubscriber(natsPub.Conn(), logger)
		if err := sub.SubscribeCapture(ctx, machine); err != nil {
			logger.Warn("capture subscription failed", "error", err)
		} else {
			defer sub.Close()
		}
	}

	// Connectivity probe on startup
	if err := machine.Dispatch(ctx, domain.PingRequested{}); err != nil {
		logger.Warn("initial ping not dispatched", "error", err)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // drawn polygons can carry many vertices
		AppName:      "AOI Explorer API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("API server starting", "addr", addr, "endpoints", cfg.Endpoints)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	cancel()
	<-machineDone
	logger.Info("server stopped")
}
