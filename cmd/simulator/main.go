package main

import (
	"context"
	"delivery-fleet-sim/internal/adapters/assignments"
	"delivery-fleet-sim/internal/adapters/cache"
	"delivery-fleet-sim/internal/adapters/reporting"
	"delivery-fleet-sim/internal/adapters/repositories"
	"delivery-fleet-sim/internal/adapters/routing"
	"delivery-fleet-sim/internal/api"
	"delivery-fleet-sim/internal/config"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/db"
	"delivery-fleet-sim/internal/platform/obs"
	"delivery-fleet-sim/internal/ports"
	"delivery-fleet-sim/internal/services"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// main is the composition root. It wires the Redis assignment source, a
// route provider for the configured movement profile and the HTTP reporter
// into a fleet, then ticks until interrupted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := obs.Setup(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := assignments.MustRedis(cfg.RedisURL)
	defer rdb.Close()
	source := assignments.NewRedisAssignmentSource(rdb, cfg.CallTimeout)

	routes, closeRoutes, err := buildRouteProvider(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeRoutes()

	reporter, err := reporting.NewHTTPReporter(cfg.BackendURL, cfg.CallTimeout)
	if err != nil {
		log.Fatal(err)
	}

	fleet, err := services.NewFleet(services.FleetConfig{
		Size:           cfg.NumDrivers,
		Center:         domain.Coordinates{Lat: cfg.CenterLat, Lng: cfg.CenterLng},
		SpawnSpread:    cfg.SpawnSpread,
		Seed:           cfg.Seed,
		TickInterval:   cfg.TickInterval,
		AgentTimeout:   cfg.AgentTimeout,
		MaxConcurrency: cfg.MaxConcurrency,
		Motion: services.MotionParams{
			StepsPerTick: cfg.StepsPerTick,
			PickupDwell:  cfg.PickupDwell,
			WanderRadius: cfg.WanderRadius,
			CallTimeout:  cfg.CallTimeout,
		},
	}, source, routes, reporter)
	if err != nil {
		log.Fatal(err)
	}

	log.WithFields(log.Fields{
		"drivers": cfg.NumDrivers,
		"mode":    cfg.MovementMode,
		"backend": cfg.BackendURL,
	}).Info("simulator starting")

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           api.NewRouter(fleet, 10*cfg.TickInterval),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			log.Infof("Status API listening addr=%s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("status API stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := fleet.Run(ctx); err != nil {
		log.WithError(err).Error("fleet stopped")
	}
}

// buildRouteProvider picks the movement profile. The route profile is
// wrapped in the Postgres cache when DATABASE_URL is set; cache calls get a
// slice of the call timeout so OSRM keeps most of it.
func buildRouteProvider(cfg config.Config) (ports.RouteProvider, func(), error) {
	noop := func() {}

	if cfg.MovementMode == config.ModeDirect {
		return routing.NewStraightLineProvider(cfg.DirectStepSize), noop, nil
	}

	osrm, err := routing.NewOSRMRouteProvider(cfg.RoutingURL, cfg.CallTimeout)
	if err != nil {
		return nil, noop, err
	}
	if cfg.DatabaseURL == "" {
		return osrm, noop, nil
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		// The cache is optional; run uncached rather than not at all.
		log.WithError(err).Warn("route cache disabled")
		return osrm, noop, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repositories.InitSchema(ctx, conn); err != nil {
		conn.Close()
		log.WithError(err).Warn("route cache disabled")
		return osrm, noop, nil
	}

	return routing.NewCachedRouteProvider(osrm, cache.NewSQLRouteCache(conn), cfg.CallTimeout/4), func() { conn.Close() }, nil
}
