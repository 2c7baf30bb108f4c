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

	"github.com/GrEarl/CloverBINGO-sub000/internal/auth"
	"github.com/GrEarl/CloverBINGO-sub000/internal/config"
	"github.com/GrEarl/CloverBINGO-sub000/internal/directory"
	"github.com/GrEarl/CloverBINGO-sub000/internal/gateway"
	"github.com/GrEarl/CloverBINGO-sub000/internal/ledger"
	"github.com/GrEarl/CloverBINGO-sub000/internal/session"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Server] Ignoring .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	store, storeMode, err := ledger.NewStore(ledger.Options{
		Mode:              cfg.StoreMode,
		DatabaseDSN:       cfg.DatabaseDSN,
		LocalDatabasePath: cfg.LocalDatabasePath,
	})
	if err != nil {
		log.Fatalf("[Server] Failed to init session store: %v", err)
	}
	defer store.Close()

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	dir := directory.New(session.Config{
		Store:    store,
		OwnerID:  instanceID,
		LeaseTTL: cfg.OwnerLeaseTTL,
		HashCost: cfg.SecretHashCost,
		Seed:     cfg.Seed,
	})
	if cfg.TicketSecret == "" {
		log.Printf("[Server] BINGO_TICKET_SECRET is empty; tickets will not survive a restart")
	}
	gw := gateway.New(dir, store, auth.NewTickets(cfg.TicketSecret, cfg.TicketTTL), cfg.AllowedOrigins)

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reapLoop(ctx, dir, cfg.ReapInterval)

	go func() {
		log.Printf("[Server] Store mode: %s", storeMode)
		log.Printf("[Server] Instance: %s", instanceID)
		log.Printf("[Server] Listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] Failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
	dir.Close()
}

// reapLoop drops coordinators that stopped on their own (lost lease, failed load).
func reapLoop(ctx context.Context, dir *directory.Directory, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dir.Reap()
		}
	}
}
