// Package tokencodec implements the TokenCodec component: signing and
// verification of short-lived bearer access tokens, plus generation and
// hashing of opaque tokens for refresh/invite/password-reset material.
//
// Grounded on internal/auth/auth_service.go's generateToken/RefreshToken
// (jwt/v5, HMAC, os.Getenv("JWT_SECRET")) generalized to accept an
// injected signing key and clock; opaque tokens use crypto/rand plus
// base64 URL encoding for the same unguessable-token shape.
package tokencodec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vacationplanner/internal/clock"
	"vacationplanner/internal/shared/apperror"
)

const TokenTypeAccess = "access"

// AccessClaims is the access token payload: subject, company, role
// snapshot (AuthMiddleware puts it on the request context and the
// authz Principal is built from it; it is not re-checked against
// IdentityStore), issued at, expiry, token type, and a jti for
// traceability.
type AccessClaims struct {
	UserID    string
	CompanyID string
	RoleHint  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	JTI       string
}

type Codec struct {
	signingKey []byte
	clock      clock.Clock
}

func New(signingKey []byte, c clock.Clock) *Codec {
	return &Codec{signingKey: signingKey, clock: c}
}

// IssueAccessToken signs a new bearer access token valid for ttl.
func (c *Codec) IssueAccessToken(userID, companyID, roleHint string, ttl time.Duration) (string, AccessClaims, error) {
	now := c.clock.Now()
	claims := AccessClaims{
		UserID:    userID,
		CompanyID: companyID,
		RoleHint:  roleHint,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		JTI:       uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        claims.UserID,
		"company_id": claims.CompanyID,
		"role":       claims.RoleHint,
		"type":       TokenTypeAccess,
		"jti":        claims.JTI,
		"iat":        claims.IssuedAt.Unix(),
		"exp":        claims.ExpiresAt.Unix(),
	})

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", AccessClaims{}, err
	}
	return signed, claims, nil
}

// VerifyAccessToken parses and validates a bearer access token, failing
// with a stable error kind: Expired, BadSignature, WrongType, Malformed.
func (c *Codec) VerifyAccessToken(raw string) (AccessClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.signingKey, nil
	}, jwt.WithTimeFunc(c.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, apperror.ErrExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return AccessClaims{}, apperror.ErrBadSignature
		}
		return AccessClaims{}, apperror.ErrMalformedToken
	}
	if !token.Valid {
		return AccessClaims{}, apperror.ErrBadSignature
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, apperror.ErrMalformedToken
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != TokenTypeAccess {
		return AccessClaims{}, apperror.ErrWrongTokenType
	}

	userID, _ := claims["sub"].(string)
	companyID, _ := claims["company_id"].(string)
	roleHint, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)
	if userID == "" || companyID == "" {
		return AccessClaims{}, apperror.ErrMalformedToken
	}

	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)

	return AccessClaims{
		UserID:    userID,
		CompanyID: companyID,
		RoleHint:  roleHint,
		JTI:       jti,
		IssuedAt:  time.Unix(int64(iat), 0).UTC(),
		ExpiresAt: time.Unix(int64(exp), 0).UTC(),
	}, nil
}

// --- Opaque tokens (refresh, invite, password-reset) ---

// Opaque bundles the raw token (returned to the caller exactly once) and
// its SHA-256 hash, the only thing persisted.
type Opaque struct {
	Raw  string
	Hash string
}

// NewOpaque generates 256 bits of entropy encoded URL-safe, and its hash.
func NewOpaque() (Opaque, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Opaque{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return Opaque{Raw: raw, Hash: HashOpaque(raw)}, nil
}

// HashOpaque computes the persisted lookup hash for a raw opaque token.
func HashOpaque(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LooksLikeOpaqueToken is a light shape check used before a DB round
// trip; it never substitutes for the hash comparison.
func LooksLikeOpaqueToken(raw string) bool {
	return len(raw) > 0 && !strings.ContainsAny(raw, " \t\n")
}
