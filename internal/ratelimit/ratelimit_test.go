package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/config"
	"vacationplanner/internal/ratelimit"
	"vacationplanner/internal/shared/apperror"
)

func testTable() config.RateLimitTable {
	return config.RateLimitTable{
		Login:      config.RateLimitRule{Limit: 2, Window: time.Minute},
		APIDefault: config.RateLimitRule{Limit: 100, Window: time.Hour},
	}
}

func TestGate_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("first request in the window sets the TTL", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		key := "ratelimit:login:user-1"
		mock.ExpectIncr(key).SetVal(1)
		mock.ExpectExpire(key, time.Minute).SetVal(true)

		err := gate.Allow(ctx, ratelimit.CategoryLogin, "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a request within the limit does not re-arm the TTL", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		key := "ratelimit:login:user-1"
		mock.ExpectIncr(key).SetVal(2)

		err := gate.Allow(ctx, ratelimit.CategoryLogin, "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exceeding the limit returns ErrRateLimited with a retry-after hint", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		key := "ratelimit:login:user-1"
		mock.ExpectIncr(key).SetVal(3)
		mock.ExpectTTL(key).SetVal(45 * time.Second)

		err := gate.Allow(ctx, ratelimit.CategoryLogin, "user-1")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.ErrRateLimited.Code, appErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("an unknown category is rejected before touching redis", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		err := gate.Allow(ctx, ratelimit.Category("nonexistent"), "user-1")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGate_Lockout(t *testing.T) {
	ctx := context.Background()

	t.Run("CheckLockout passes when the latch key has no TTL", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		mock.ExpectTTL("lockout:latch:user-1").SetVal(-1 * time.Nanosecond)
		err := gate.CheckLockout(ctx, "user-1")
		assert.NoError(t, err)
	})

	t.Run("CheckLockout fails while the latch is active", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		mock.ExpectTTL("lockout:latch:user-1").SetVal(10 * time.Minute)
		err := gate.CheckLockout(ctx, "user-1")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.ErrLoginLocked.Code, appErr.Code)
	})

	t.Run("RecordFailure below threshold just increments", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		mock.ExpectIncr("lockout:fail:user-1").SetVal(1)
		mock.ExpectExpire("lockout:fail:user-1", 15*time.Minute).SetVal(true)

		err := gate.RecordFailure(ctx, "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RecordFailure at threshold latches the account and clears the counter", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		mock.ExpectIncr("lockout:fail:user-1").SetVal(5)
		mock.ExpectSet("lockout:latch:user-1", "1", 15*time.Minute).SetVal("OK")
		mock.ExpectDel("lockout:fail:user-1").SetVal(1)

		err := gate.RecordFailure(ctx, "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ClearFailures deletes the counter", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testTable())

		mock.ExpectDel("lockout:fail:user-1").SetVal(1)
		err := gate.ClearFailures(ctx, "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
