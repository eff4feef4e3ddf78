package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vacationplanner/internal/calendar"
	"vacationplanner/internal/events"
)

// fakeCalendar implements calendar.Service, tracking the allocation
// handed to AdjustDaysUsed for assertion.
type fakeCalendar struct {
	period          *calendar.VacationPeriod
	allocation      *calendar.VacationAllocation
	resolveErr      error
	getForUpdateErr error
	adjustErr       error
	adjustedDelta   int
	adjustCalled    bool
}

func (f *fakeCalendar) WithTx(tx *gorm.DB) calendar.Service { return f }
func (f *fakeCalendar) BusinessDays(start, end time.Time) int { return 0 }

func (f *fakeCalendar) ResolvePeriod(ctx context.Context, companyID uuid.UUID, date time.Time) (*calendar.VacationPeriod, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.period, nil
}

func (f *fakeCalendar) GetAllocation(ctx context.Context, userID, periodID uuid.UUID) (*calendar.VacationAllocation, error) {
	return f.allocation, nil
}

func (f *fakeCalendar) GetAllocationForUpdate(ctx context.Context, userID, periodID uuid.UUID) (*calendar.VacationAllocation, error) {
	if f.getForUpdateErr != nil {
		return nil, f.getForUpdateErr
	}
	return f.allocation, nil
}

func (f *fakeCalendar) AdjustDaysUsed(ctx context.Context, allocation *calendar.VacationAllocation, delta int, allowOverdraft bool) error {
	f.adjustCalled = true
	f.adjustedDelta = delta
	if f.adjustErr != nil {
		return f.adjustErr
	}
	return nil
}

func (f *fakeCalendar) Balance(ctx context.Context, userID uuid.UUID, period *calendar.VacationPeriod, pendingDays int) (calendar.Balance, error) {
	return calendar.Balance{}, nil
}
func (f *fakeCalendar) ListPeriods(ctx context.Context, companyID uuid.UUID) ([]calendar.VacationPeriod, error) {
	return nil, nil
}
func (f *fakeCalendar) GetPeriod(ctx context.Context, companyID, id uuid.UUID) (*calendar.VacationPeriod, error) {
	return nil, nil
}
func (f *fakeCalendar) CreatePeriod(ctx context.Context, p *calendar.VacationPeriod) error {
	return nil
}

func TestProvisionAllocation(t *testing.T) {
	ctx := context.Background()
	userID, companyID, periodID := uuid.New(), uuid.New(), uuid.New()
	event := events.UserCreatedEvent{
		EventType: "user.created",
		UserID:    userID.String(),
		CompanyID: companyID.String(),
	}

	t.Run("provisions the default allocation for a fresh user", func(t *testing.T) {
		svc := &fakeCalendar{
			period:     &calendar.VacationPeriod{ID: periodID, CompanyID: companyID},
			allocation: &calendar.VacationAllocation{UserID: userID, PeriodID: periodID, TotalDays: 0},
		}

		err := provisionAllocation(ctx, svc, event, 20)
		require.NoError(t, err)
		assert.True(t, svc.adjustCalled)
		assert.Equal(t, 20, svc.allocation.TotalDays)
		assert.Equal(t, 0, svc.adjustedDelta)
	})

	t.Run("an already-provisioned allocation is a no-op", func(t *testing.T) {
		svc := &fakeCalendar{
			period:     &calendar.VacationPeriod{ID: periodID, CompanyID: companyID},
			allocation: &calendar.VacationAllocation{UserID: userID, PeriodID: periodID, TotalDays: 20},
		}

		err := provisionAllocation(ctx, svc, event, 20)
		require.NoError(t, err)
		assert.False(t, svc.adjustCalled)
	})

	t.Run("an invalid user id is rejected before touching the calendar service", func(t *testing.T) {
		svc := &fakeCalendar{}
		bad := event
		bad.UserID = "not-a-uuid"

		err := provisionAllocation(ctx, svc, bad, 20)
		assert.Error(t, err)
		assert.False(t, svc.adjustCalled)
	})

	t.Run("an invalid company id is rejected", func(t *testing.T) {
		svc := &fakeCalendar{}
		bad := event
		bad.CompanyID = "not-a-uuid"

		err := provisionAllocation(ctx, svc, bad, 20)
		assert.Error(t, err)
	})

	t.Run("a ResolvePeriod failure is surfaced", func(t *testing.T) {
		svc := &fakeCalendar{resolveErr: assert.AnError}
		err := provisionAllocation(ctx, svc, event, 20)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("a GetAllocationForUpdate failure is surfaced", func(t *testing.T) {
		svc := &fakeCalendar{
			period:          &calendar.VacationPeriod{ID: periodID, CompanyID: companyID},
			getForUpdateErr: assert.AnError,
		}
		err := provisionAllocation(ctx, svc, event, 20)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
