package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vacationplanner/internal/config"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/messaging/kafka/producer"
	"vacationplanner/internal/shared/connection"
)

// RunWorker drains the outbox table onto Kafka — audit-mirror events
// (vacations.audit.v1) and user-lifecycle events
// (vacations.user.lifecycle.v1) alike, since OutboxEvent.Topic carries
// the destination per row.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode, 5,
	)
	if err != nil {
		return err
	}

	if cfg.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.KafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafkaoutbox.NewOutboxRepository(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}
