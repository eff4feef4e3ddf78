package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vacationplanner/internal/calendar"
	"vacationplanner/internal/config"
	"vacationplanner/internal/events"
	"vacationplanner/internal/messaging/kafka/consumer"
	"vacationplanner/internal/shared/connection"
)

// RunConsumer provisions a new user's default VacationAllocation off
// the vacations.user.lifecycle.v1 topic, the same cross-module pattern
// used elsewhere to provision a default row off an entity-created
// topic.
func RunConsumer() error {
	logger := zap.L().Named("app.consumer")

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

	calendarRepo := calendar.NewRepository(gormDB)
	calendarService := calendar.NewService(calendarRepo)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.UserCreatedTopic,
		GroupID:        "vacationplanner-allocation-provisioner",
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeUserLifecycle(ctx, reader, calendarService, cfg.DefaultAnnualAllocationDays, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
