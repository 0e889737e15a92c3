package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/fuomag9/colive-web/internal/api"
	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/database"
	"github.com/fuomag9/colive-web/internal/flow"
	"github.com/fuomag9/colive-web/internal/identity"
	"github.com/fuomag9/colive-web/internal/jobs"
	"github.com/fuomag9/colive-web/internal/store"
	"github.com/fuomag9/colive-web/internal/telemetry"
	"github.com/fuomag9/colive-web/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Tracing
	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Run migrations before the store opens its pool
	if cfg.Store.Driver == config.StorePostgres {
		if err := database.RunMigrations(cfg.Store.Database); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Flow-session store
	st, err := store.New(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer st.Close()

	// Identity provider
	idClient, err := identity.NewClient(cfg.Identity)
	if err != nil {
		log.Fatalf("Failed to create identity client: %v", err)
	}

	// Initialize job scheduler
	scheduler := jobs.NewScheduler(st, cfg.Store.CleanupSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	handoff := flow.NewHandoff(cfg.Mobile.Scheme, cfg.Mobile.AndroidPackage, cfg.Mobile.Path, cfg.Mobile.FallbackDelay)
	handoffServer := websocket.NewHandoffServer(st, handoff, cfg.CORSOrigins)

	limiter := api.NewRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	stopLimiterCleanup := make(chan struct{})
	limiter.CleanupOldLimiters(10*time.Minute, stopLimiterCleanup)
	defer close(stopLimiterCleanup)

	// Setup router
	router := api.NewRouter(&api.Deps{
		Config:   cfg,
		Identity: idClient,
		Store:    st,
		Handoff:  handoff,
	}, handoffServer, limiter)

	// Create HTTP server. No WriteTimeout: hand-off sockets outlive a page response.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %d (store: %s)", cfg.Port, cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	log.Println("Server exited")
}
