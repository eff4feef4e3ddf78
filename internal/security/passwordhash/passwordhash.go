// Package passwordhash implements the PasswordHasher component: a
// memory-hard hash/verify pair with configurable cost parameters, plus
// the password policy enforced at set/change time.
//
// Grounded on bcrypt usage in internal/auth/auth_service.go (hash/verify
// shape, DefaultCost), generalized to Argon2id — a memory-hard hash with
// explicit time/memory/parallelism knobs that bcrypt cannot express —
// for newly hashed passwords, keeping bcrypt only as a verify-time
// fallback for hashes stored before a cutover.
package passwordhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"vacationplanner/internal/config"
	"vacationplanner/internal/shared/apperror"
)

const encodedPrefix = "$argon2id$"

type Hasher struct {
	params config.HashParams
}

func New(params config.HashParams) *Hasher {
	return &Hasher{params: params}
}

// Hash produces an encoded Argon2id hash carrying its own parameters and
// salt, in the standard "$argon2id$v=19$m=...,t=...,p=...$salt$hash" form.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.TimeCost,
		h.params.MemoryKiB,
		h.params.Parallelism,
		h.params.KeyLen,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.TimeCost,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyResult reports the outcome of Verify.
type VerifyResult struct {
	Match       bool
	NeedsRehash bool
}

// Verify checks a password against an encoded hash. Legacy bcrypt hashes
// (no "$argon2id$" prefix) are still accepted so a rolling migration
// doesn't force every user to reset their password; a bcrypt match always
// reports NeedsRehash so the caller re-persists an Argon2id hash on the
// next successful login.
func (h *Hasher) Verify(encoded, password string) (VerifyResult, error) {
	if strings.HasPrefix(encoded, encodedPrefix) {
		return h.verifyArgon2id(encoded, password)
	}
	if strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$") {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if err != nil {
			return VerifyResult{}, apperror.ErrInvalidCredential
		}
		return VerifyResult{Match: true, NeedsRehash: true}, nil
	}
	return VerifyResult{}, apperror.ErrStoredHashCorrupt
}

func (h *Hasher) verifyArgon2id(encoded, password string) (VerifyResult, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return VerifyResult{}, apperror.ErrStoredHashCorrupt
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return VerifyResult{}, apperror.ErrStoredHashCorrupt
	}

	var memory, timeCost uint32
	var parallelism uint8
	if err := parseParams(parts[3], &memory, &timeCost, &parallelism); err != nil {
		return VerifyResult{}, apperror.ErrStoredHashCorrupt
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return VerifyResult{}, apperror.ErrStoredHashCorrupt
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return VerifyResult{}, apperror.ErrStoredHashCorrupt
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(storedKey)))
	if subtle.ConstantTimeCompare(computed, storedKey) != 1 {
		return VerifyResult{}, apperror.ErrInvalidCredential
	}

	needsRehash := memory < h.params.MemoryKiB || timeCost < h.params.TimeCost || parallelism < h.params.Parallelism
	return VerifyResult{Match: true, NeedsRehash: needsRehash}, nil
}

func parseParams(s string, memory, timeCost *uint32, parallelism *uint8) error {
	for _, kv := range strings.Split(s, ",") {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			return fmt.Errorf("malformed param %q", kv)
		}
		n, err := strconv.Atoi(pair[1])
		if err != nil {
			return err
		}
		switch pair[0] {
		case "m":
			*memory = uint32(n)
		case "t":
			*timeCost = uint32(n)
		case "p":
			*parallelism = uint8(n)
		}
	}
	return nil
}

// --- Password policy ---

// Policy failure identifiers, exposed so WeakPassword carries the first
// failing rule as required detail.
const (
	RuleMinLength = "min_length_12"
	RuleUpper     = "at_least_one_uppercase"
	RuleLower     = "at_least_one_lowercase"
	RuleDigit     = "at_least_one_digit"
	RuleSpecial   = "at_least_one_special"
)

const specialChars = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?`~\\"

// ValidatePolicy enforces the password policy at set/change time. It is
// never applied at verify time — an old password that predates a policy
// tightening must still authenticate.
func ValidatePolicy(password string) error {
	if len(password) < 12 {
		return apperror.ErrWeakPassword.WithDetails(RuleMinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return apperror.ErrWeakPassword.WithDetails(RuleUpper)
	case !hasLower:
		return apperror.ErrWeakPassword.WithDetails(RuleLower)
	case !hasDigit:
		return apperror.ErrWeakPassword.WithDetails(RuleDigit)
	case !hasSpecial:
		return apperror.ErrWeakPassword.WithDetails(RuleSpecial)
	}
	return nil
}
