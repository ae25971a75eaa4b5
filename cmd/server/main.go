package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/civ-balance/api/internal/auth"
	"github.com/freeeve/civ-balance/api/internal/config"
	"github.com/freeeve/civ-balance/api/internal/handler"
	"github.com/freeeve/civ-balance/api/internal/logger"
	"github.com/freeeve/civ-balance/api/internal/middleware"
	"github.com/freeeve/civ-balance/api/internal/repository"
	"github.com/freeeve/civ-balance/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/civ-balance/api/internal/repository/redis"
	"github.com/freeeve/civ-balance/api/internal/service"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

func main() {
	logger.Init(nil)
	cfg := config.Load()
	log.Info().
		Str("profile", cfg.Profile).
		Float64("spread", cfg.Spread).
		Str("speed", cfg.Speed).
		Bool("archive", cfg.DatabaseURL != "").
		Bool("cache", cfg.RedisURL != "").
		Msg("Config loaded")

	registry, err := balance.LoadRegistry(cfg.Profile, cfg.Spread)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load civilization catalog")
	}

	// Run archive (optional)
	var runs repository.RunRepository
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		runs = postgres.NewRunRepo(db)
	}

	// Progress cache (optional)
	var cache repository.ProgressCache
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(cfg.RedisURL, "")
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		cache = redisClient
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	simSvc := service.NewSimulationService(registry, runs, cache, wsHub, cfg.Speed)

	// Handlers
	simHandler := handler.NewSimulationHandler(simSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, simSvc)

	// Router
	mux := http.NewServeMux()
	operator := func(h http.HandlerFunc) http.Handler { return auth.Middleware(jwtMgr)(h) }

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public reads
	mux.HandleFunc("GET /api/v1/civilizations", simHandler.ListCivilizations)
	mux.HandleFunc("GET /api/v1/simulations/current", simHandler.CurrentSimulation)
	mux.HandleFunc("GET /api/v1/simulations/current/insights", simHandler.Insights)
	mux.HandleFunc("GET /api/v1/runs", simHandler.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", simHandler.GetRun)

	// Operator controls
	mux.Handle("PUT /api/v1/civilizations/spread", operator(simHandler.SetSpread))
	mux.Handle("POST /api/v1/simulations", operator(simHandler.StartSimulation))
	mux.Handle("POST /api/v1/simulations/current/cancel", operator(simHandler.CancelSimulation))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := simSvc.Cancel(); err == nil {
		log.Info().Msg("Cancelled running simulation")
	}
	if err := simSvc.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Simulation did not stop before shutdown deadline")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
