package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"vacationplanner/internal/calendar"
	"vacationplanner/internal/events"
)

// ConsumeUserLifecycle provisions the default annual VacationAllocation
// for a newly created user, the same pattern as an employee-created
// consumer provisioning a default salary row. defaultDays comes from
// config.Config.DefaultAnnualAllocationDays.
func ConsumeUserLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	calendarService calendar.Service,
	defaultDays int,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.user_lifecycle")
	log.Info("user lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("user lifecycle consumer stopped")
				return
			}
			log.Error("fetch user lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.UserCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode user_created event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if err := provisionAllocation(ctx, calendarService, event, defaultDays); err != nil {
			log.Error("provision default allocation failed",
				zap.String("user_id", event.UserID),
				zap.String("company_id", event.CompanyID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit user lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("default allocation provisioned from user_created event",
			zap.String("user_id", event.UserID),
			zap.String("company_id", event.CompanyID),
		)
	}
}

func provisionAllocation(ctx context.Context, svc calendar.Service, event events.UserCreatedEvent, defaultDays int) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return err
	}
	companyID, err := uuid.Parse(event.CompanyID)
	if err != nil {
		return err
	}

	period, err := svc.ResolvePeriod(ctx, companyID, time.Now().UTC())
	if err != nil {
		return err
	}

	allocation, err := svc.GetAllocationForUpdate(ctx, userID, period.ID)
	if err != nil {
		return err
	}
	if allocation.TotalDays > 0 {
		return nil // already provisioned, e.g. a redelivered message
	}
	allocation.TotalDays = defaultDays
	return svc.AdjustDaysUsed(ctx, allocation, 0, true)
}
