// Command worker drains the shared email queue and runs the delayed email schedule.
package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"skillswap/internal/bootstrap"
	"skillswap/internal/config"
	"skillswap/internal/email"
	"skillswap/internal/jobs"
	"skillswap/internal/middleware"
	"skillswap/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ServiceName: "skillswap-worker", SkipStorage: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	renderer, err := email.NewRenderer(cfg.AppURL)
	if err != nil {
		log.Fatalf("Failed to load email templates: %v", err)
	}

	var dispatcher *email.Dispatcher
	if _, inProcess := rt.Queue.(*email.MemoryQueue); inProcess {
		middleware.Logger.Warn("EMAIL_QUEUE=memory: immediate emails are dispatched by the API process; worker runs the schedule only")
	} else {
		dispatcher = email.NewDispatcher(rt.Queue, rt.Sender, cfg.EmailWorkers)
		dispatcher.Start(ctx)
	}

	job := jobs.NewDelayedEmailJob(repository.NewNotificationRepository(rt.DB), renderer, rt.Sender,
		cfg.DelayedEmailBatch, cfg.DelayedEmailAge)
	scheduler, err := jobs.NewScheduler(cfg.DelayedEmailSchedule, job)
	if err != nil {
		log.Fatalf("Invalid DELAYED_EMAIL_SCHEDULE %q: %v", cfg.DelayedEmailSchedule, err)
	}
	scheduler.Start()
	middleware.Logger.Info("worker started",
		slog.String("schedule", cfg.DelayedEmailSchedule),
		slog.Int("email_workers", cfg.EmailWorkers),
		slog.String("queue", cfg.EmailQueue))

	<-ctx.Done()
	middleware.Logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if dispatcher != nil {
		dispatcher.Wait()
	}
	rt.Close(shutdownCtx)
}
