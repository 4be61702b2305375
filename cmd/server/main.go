// Command server runs the SkillSwap HTTP API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillswap/internal/bootstrap"
	"skillswap/internal/config"
	"skillswap/internal/email"
	"skillswap/internal/middleware"
	"skillswap/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{ServiceName: "skillswap-api"})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServer(cfg, rt.Deps())
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// An in-memory queue is only visible to this process, so it drains here.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var dispatcher *email.Dispatcher
	if _, inProcess := rt.Queue.(*email.MemoryQueue); inProcess {
		dispatcher = email.NewDispatcher(rt.Queue, rt.Sender, cfg.EmailWorkers)
		dispatcher.Start(workerCtx)
		middleware.Logger.Info("email dispatcher running in-process", slog.Int("workers", cfg.EmailWorkers))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			middleware.Logger.Error("Server stopped", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		middleware.Logger.Info("Shutting down server...")
	}

	// HTTP stops first so nothing new is queued while the dispatcher drains.
	// The runtime alone closes the DB and Redis.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}
	stopWorkers()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	rt.Close(shutdownCtx)
	middleware.Logger.Info("Server shutdown complete")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
