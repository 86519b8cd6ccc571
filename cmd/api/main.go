package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procmap.org/internal/auth"
	"procmap.org/internal/department"
	"procmap.org/internal/httpapi"
	"procmap.org/internal/obs"
	"procmap.org/internal/process"
	"procmap.org/internal/store/pg"
	"procmap.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("PROCMAP_PG_DSN")
	if dsn == "" {
		log.Fatal("PROCMAP_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	authSvc := auth.NewService(store.Users(), auth.WithTokenTTL(envDuration("PROCMAP_TOKEN_TTL", auth.DefaultTokenTTL)))
	deptSvc, err := department.NewService(store.Departments())
	if err != nil {
		log.Fatalf("department service: %v", err)
	}
	procSvc, err := process.NewService(store.Processes())
	if err != nil {
		log.Fatalf("process service: %v", err)
	}

	api := httpapi.New(
		httpapi.ReadyProbe{DB: store.DB()},
		version,
		authSvc,
		deptSvc,
		procSvc,
		stream.New(),
	)

	addr := os.Getenv("PROCMAP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting procmap-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return def
	}
	return d
}
