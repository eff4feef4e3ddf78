package passwordhash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vacationplanner/internal/config"
	"vacationplanner/internal/security/passwordhash"
	"vacationplanner/internal/shared/apperror"
)

func testParams() config.HashParams {
	return config.HashParams{
		TimeCost:    1,
		MemoryKiB:   8 * 1024,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := passwordhash.New(testParams())

	encoded, err := h.Hash("CorrectHorse12!")
	assert.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	t.Run("correct password matches", func(t *testing.T) {
		res, err := h.Verify(encoded, "CorrectHorse12!")
		assert.NoError(t, err)
		assert.True(t, res.Match)
		assert.False(t, res.NeedsRehash)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := h.Verify(encoded, "wrong-password")
		assert.ErrorIs(t, err, apperror.ErrInvalidCredential)
	})

	t.Run("weaker stored params trigger rehash", func(t *testing.T) {
		weakHasher := passwordhash.New(config.HashParams{TimeCost: 1, MemoryKiB: 1024, Parallelism: 1, SaltLen: 16, KeyLen: 32})
		weakEncoded, err := weakHasher.Hash("CorrectHorse12!")
		assert.NoError(t, err)

		strongerHasher := passwordhash.New(testParams())
		res, err := strongerHasher.Verify(weakEncoded, "CorrectHorse12!")
		assert.NoError(t, err)
		assert.True(t, res.Match)
		assert.True(t, res.NeedsRehash)
	})

	t.Run("corrupt hash", func(t *testing.T) {
		_, err := h.Verify("$argon2id$garbage", "whatever")
		assert.ErrorIs(t, err, apperror.ErrStoredHashCorrupt)
	})

	t.Run("unrecognized format", func(t *testing.T) {
		_, err := h.Verify("plaintext", "whatever")
		assert.ErrorIs(t, err, apperror.ErrStoredHashCorrupt)
	})
}

func TestValidatePolicy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantRule string
	}{
		{"too short", "Ab1!short", passwordhash.RuleMinLength},
		{"no upper", "alllowercase123!", passwordhash.RuleUpper},
		{"no lower", "ALLUPPERCASE123!", passwordhash.RuleLower},
		{"no digit", "NoDigitsHereAtAll!", passwordhash.RuleDigit},
		{"no special", "NoSpecialChars1234", passwordhash.RuleSpecial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := passwordhash.ValidatePolicy(tc.password)
			var appErr *apperror.AppError
			assert.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperror.ErrWeakPassword.Code, appErr.Code)
			assert.Equal(t, tc.wantRule, appErr.Details)
		})
	}

	t.Run("valid password passes", func(t *testing.T) {
		err := passwordhash.ValidatePolicy("ValidPassword123!")
		assert.NoError(t, err)
	})
}
