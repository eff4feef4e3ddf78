package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/events"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/shared/apperror"
)

// Record describes one audit write before it is persisted; Before/After
// are marshaled to JSON at Insert time.
type Record struct {
	CompanyID  uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Before     any
	After      any
	IP         string
	UserAgent  string
}

const outboxTopic = events.AuditEventTopic

//go:generate mockgen -source=audit_service.go -destination=mock/audit_service_mock.go -package=mock
type Sink interface {
	// Record writes the event through the sink's repo scoped with
	// WithTx(tx), so the audit row lands in the same transaction as the
	// operation it describes: no commit, no audit record.
	Record(ctx context.Context, tx *gorm.DB, outboxRepo kafkaoutbox.OutboxRepository, rec Record) error
	Query(ctx context.Context, f Filter, limit, offset int) ([]Event, error)
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*Event, error)
}

type sink struct {
	repo   Repository
	clock  clock.Clock
	logger *zap.Logger
}

func NewSink(repo Repository, c clock.Clock, logger ...*zap.Logger) Sink {
	l := zap.L().Named("audit.sink")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.sink")
	}
	return &sink{repo: repo, clock: c, logger: l}
}

func (s *sink) Record(ctx context.Context, tx *gorm.DB, outboxRepo kafkaoutbox.OutboxRepository, rec Record) error {
	before, err := marshalSnapshot(rec.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(rec.After)
	if err != nil {
		return err
	}

	event := &Event{
		CompanyID:  rec.CompanyID,
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Before:     before,
		After:      after,
		IP:         rec.IP,
		UserAgent:  rec.UserAgent,
		CreatedAt:  s.clock.Now(),
	}

	txRepo := s.repo.WithTx(tx)
	if err := txRepo.Insert(ctx, event); err != nil {
		s.logger.Error("audit insert failed", zap.Error(err), zap.String("action", rec.Action))
		return err
	}

	if outboxRepo != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		outboxEvent := kafkaoutbox.OutboxEvent{
			ID:            event.ID.String(),
			AggregateType: "audit_event",
			AggregateID:   event.ID.String(),
			EventType:     event.Action,
			Topic:         outboxTopic,
			Payload:       payload,
			Status:        kafkaoutbox.OutboxStatusPending,
		}
		if err := outboxRepo.WithTx(tx).Create(ctx, outboxEvent); err != nil {
			s.logger.Error("audit outbox mirror failed", zap.Error(err), zap.String("action", rec.Action))
			return err
		}
	}

	return nil
}

func (s *sink) Query(ctx context.Context, f Filter, limit, offset int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.Query(ctx, f, limit, offset)
}

func (s *sink) FindByID(ctx context.Context, companyID, id uuid.UUID) (*Event, error) {
	e, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	return e, nil
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
