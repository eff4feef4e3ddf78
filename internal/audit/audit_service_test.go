package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/clock"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/shared/apperror"
)

type fakeRepository struct {
	inserted []audit.Event
	byID     map[uuid.UUID]*audit.Event
	insertFn func(ctx context.Context, e *audit.Event) error
	queryFn  func(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.Event, error)
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byID: map[uuid.UUID]*audit.Event{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) audit.Repository { return f }

func (f *fakeRepository) Insert(ctx context.Context, e *audit.Event) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, e)
	}
	e.ID = uuid.New()
	f.inserted = append(f.inserted, *e)
	f.byID[e.ID] = e
	return nil
}

func (f *fakeRepository) Query(ctx context.Context, fl audit.Filter, limit, offset int) ([]audit.Event, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, fl, limit, offset)
	}
	return f.inserted, nil
}

func (f *fakeRepository) FindByIDAndCompany(ctx context.Context, companyID, id uuid.UUID) (*audit.Event, error) {
	e, ok := f.byID[id]
	if !ok || e.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

// fakeOutboxRepository implements kafkaoutbox.OutboxRepository, tracking
// every event handed to Create for the outbox-mirroring assertion.
type fakeOutboxRepository struct {
	created  []kafkaoutbox.OutboxEvent
	createFn func(ctx context.Context, e kafkaoutbox.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *gorm.DB) kafkaoutbox.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, e kafkaoutbox.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	f.created = append(f.created, e)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafkaoutbox.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error       { return nil }
func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id, reason string) error { return nil }

func TestSink_Record(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	actorID := uuid.New()
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	t.Run("writes the event and mirrors it to the outbox", func(t *testing.T) {
		repo := newFakeRepository()
		outbox := &fakeOutboxRepository{}
		sink := audit.NewSink(repo, c)

		err := sink.Record(ctx, nil, outbox, audit.Record{
			CompanyID: companyID,
			ActorID:   &actorID,
			Action:    audit.ActionRequestCreated,
			After:     map[string]string{"status": "pending"},
		})
		require.NoError(t, err)
		require.Len(t, repo.inserted, 1)
		assert.Equal(t, audit.ActionRequestCreated, repo.inserted[0].Action)
		assert.NotEmpty(t, repo.inserted[0].After)

		require.Len(t, outbox.created, 1)
		assert.Equal(t, "audit_event", outbox.created[0].AggregateType)
		assert.Equal(t, kafkaoutbox.OutboxStatusPending, outbox.created[0].Status)
	})

	t.Run("a nil outbox repository skips the mirror without failing", func(t *testing.T) {
		repo := newFakeRepository()
		sink := audit.NewSink(repo, c)

		err := sink.Record(ctx, nil, nil, audit.Record{CompanyID: companyID, Action: audit.ActionLoginSuccess})
		assert.NoError(t, err)
		assert.Len(t, repo.inserted, 1)
	})

	t.Run("insert failure is surfaced", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertFn = func(ctx context.Context, e *audit.Event) error { return assert.AnError }
		sink := audit.NewSink(repo, c)

		err := sink.Record(ctx, nil, nil, audit.Record{CompanyID: companyID, Action: audit.ActionLoginFailure})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestSink_FindByID(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	repo := newFakeRepository()
	sink := audit.NewSink(repo, clock.NewReal())

	err := sink.Record(ctx, nil, nil, audit.Record{CompanyID: companyID, Action: audit.ActionUserCreated})
	require.NoError(t, err)
	var id uuid.UUID
	for k := range repo.byID {
		id = k
	}

	t.Run("found", func(t *testing.T) {
		e, err := sink.FindByID(ctx, companyID, id)
		require.NoError(t, err)
		assert.Equal(t, audit.ActionUserCreated, e.Action)
	})

	t.Run("wrong company maps to not found", func(t *testing.T) {
		_, err := sink.FindByID(ctx, uuid.New(), id)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSink_Query_DefaultsLimit(t *testing.T) {
	ctx := context.Background()
	var gotLimit int
	repo := newFakeRepository()
	repo.queryFn = func(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.Event, error) {
		gotLimit = limit
		return nil, nil
	}
	sink := audit.NewSink(repo, clock.NewReal())

	_, err := sink.Query(ctx, audit.Filter{}, 10000, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
}
