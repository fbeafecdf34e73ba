// Command worker delivers booking notifications from the queue by email.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/logging"
	"github.com/iliyamo/event-booking/internal/mail"
	"github.com/iliyamo/event-booking/internal/queue"
)

func main() {
	cfg := config.LoadWorker()

	logger, logFile, err := logging.New(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.Broker.URL, cfg.Broker.Queue, mail.NewSender(cfg.Mail))
	slog.Info("notification worker started", "queue", cfg.Broker.Queue, "smtp_host", cfg.Mail.Host)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("notification worker stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("notification worker stopped")
}
