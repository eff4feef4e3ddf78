package tokencodec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/shared/apperror"
)

func TestCodec_IssueAndVerifyAccessToken(t *testing.T) {
	c := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	codec := tokencodec.New([]byte("a-very-secret-signing-key-32bytes"), c)

	t.Run("success", func(t *testing.T) {
		raw, claims, err := codec.IssueAccessToken("user-1", "company-1", "admin", 15*time.Minute)
		assert.NoError(t, err)
		assert.NotEmpty(t, raw)
		assert.Equal(t, "user-1", claims.UserID)

		got, err := codec.VerifyAccessToken(raw)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "company-1", got.CompanyID)
		assert.Equal(t, "admin", got.RoleHint)
		assert.NotEmpty(t, got.JTI)
	})

	t.Run("expired", func(t *testing.T) {
		raw, _, err := codec.IssueAccessToken("user-1", "company-1", "admin", time.Minute)
		assert.NoError(t, err)

		future := clock.NewFrozen(c.Now().Add(time.Hour))
		laterCodec := tokencodec.New([]byte("a-very-secret-signing-key-32bytes"), future)
		_, err = laterCodec.VerifyAccessToken(raw)
		assert.ErrorIs(t, err, apperror.ErrExpired)
	})

	t.Run("bad signature", func(t *testing.T) {
		raw, _, err := codec.IssueAccessToken("user-1", "company-1", "admin", time.Minute)
		assert.NoError(t, err)

		otherCodec := tokencodec.New([]byte("a-totally-different-signing-key"), c)
		_, err = otherCodec.VerifyAccessToken(raw)
		assert.ErrorIs(t, err, apperror.ErrBadSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := codec.VerifyAccessToken("not-a-jwt")
		assert.ErrorIs(t, err, apperror.ErrMalformedToken)
	})
}

func TestNewOpaque(t *testing.T) {
	a, err := tokencodec.NewOpaque()
	assert.NoError(t, err)
	b, err := tokencodec.NewOpaque()
	assert.NoError(t, err)

	assert.NotEmpty(t, a.Raw)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, tokencodec.HashOpaque(a.Raw), a.Hash)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestLooksLikeOpaqueToken(t *testing.T) {
	assert.True(t, tokencodec.LooksLikeOpaqueToken("abc123"))
	assert.False(t, tokencodec.LooksLikeOpaqueToken(""))
	assert.False(t, tokencodec.LooksLikeOpaqueToken("has space"))
}
