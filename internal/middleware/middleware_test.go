package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacationplanner/internal/authz"
	"vacationplanner/internal/clock"
	"vacationplanner/internal/config"
	"vacationplanner/internal/identity"
	"vacationplanner/internal/middleware"
	"vacationplanner/internal/ratelimit"
	"vacationplanner/internal/security/tokencodec"
	"vacationplanner/internal/shared/apperror"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuthMiddleware(t *testing.T) {
	signingKey := []byte("a-signing-key-that-is-at-least-32-bytes")
	codec := tokencodec.New(signingKey, clock.NewReal())

	router := newRouter()
	router.Use(middleware.AuthMiddleware(codec))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString("user_id"),
			"company_id": c.GetString("company_id"),
			"role":       c.GetString("role"),
		})
	})

	t.Run("bearer token grants access and seeds claims", func(t *testing.T) {
		userID, companyID := uuid.New().String(), uuid.New().String()
		raw, _, err := codec.IssueAccessToken(userID, companyID, "admin", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID)
		assert.Contains(t, w.Body.String(), companyID)
	})

	t.Run("access_token cookie is accepted when no bearer header is present", func(t *testing.T) {
		userID, companyID := uuid.New().String(), uuid.New().String()
		raw, _, err := codec.IssueAccessToken(userID, companyID, "user", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: raw})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), apperror.ErrUnauthorized.Code)
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token maps to ErrExpired", func(t *testing.T) {
		frozen := clock.NewFrozen(time.Now())
		expiringCodec := tokencodec.New(signingKey, frozen)
		raw, _, err := expiringCodec.IssueAccessToken(uuid.New().String(), uuid.New().String(), "user", time.Minute)
		require.NoError(t, err)
		frozen.Advance(2 * time.Minute)

		expRouter := newRouter()
		expRouter.Use(middleware.AuthMiddleware(expiringCodec))
		expRouter.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		expRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), apperror.ErrExpired.Code)
	})
}

func TestRBACAuthorize(t *testing.T) {
	t.Run("valid principal and allowed verb passes through", func(t *testing.T) {
		router := newRouter()
		router.Use(func(c *gin.Context) {
			c.Set("user_id", uuid.New().String())
			c.Set("company_id", uuid.New().String())
			c.Set("role", string(identity.RoleAdmin))
			c.Next()
		})
		router.Use(middleware.RBACAuthorize(&fakeKernel{}, "user", "read"))
		router.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("kernel denial is surfaced as forbidden", func(t *testing.T) {
		router := newRouter()
		router.Use(func(c *gin.Context) {
			c.Set("user_id", uuid.New().String())
			c.Set("company_id", uuid.New().String())
			c.Set("role", string(identity.RoleUser))
			c.Next()
		})
		router.Use(middleware.RBACAuthorize(&fakeKernel{err: apperror.ErrForbidden}, "user", "delete"))
		router.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing user_id in context is unauthorized", func(t *testing.T) {
		router := newRouter()
		router.Use(middleware.RBACAuthorize(&fakeKernel{}, "user", "read"))
		router.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed company_id is unauthorized", func(t *testing.T) {
		router := newRouter()
		router.Use(func(c *gin.Context) {
			c.Set("user_id", uuid.New().String())
			c.Set("company_id", "not-a-uuid")
			c.Set("role", string(identity.RoleUser))
			c.Next()
		})
		router.Use(middleware.RBACAuthorize(&fakeKernel{}, "user", "read"))
		router.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type fakeKernel struct {
	err error
}

func (k *fakeKernel) Authorize(ctx context.Context, principal authz.Principal, resource, verb string) error {
	return k.err
}
func (k *fakeKernel) ScopeFor(principal authz.Principal, resource string) authz.Scope {
	return authz.Scope{Kind: authz.ScopeAny}
}
func (k *fakeKernel) CheckTenant(principal authz.Principal, entityCompanyID uuid.UUID) error {
	return nil
}

func TestSecurityHeaders(t *testing.T) {
	router := newRouter()
	router.Use(middleware.SecurityHeaders())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "-", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRequestID(t *testing.T) {
	router := newRouter()
	router.Use(middleware.RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})

	t.Run("generates an id when the caller sends none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		echoed := w.Header().Get("X-Request-ID")
		assert.NotEmpty(t, echoed)
		assert.Contains(t, w.Body.String(), echoed)
	})

	t.Run("echoes a caller-supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "caller-chosen-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "caller-chosen-id", w.Header().Get("X-Request-ID"))
	})
}

func TestCSRF(t *testing.T) {
	allowed := []string{"https://app.example.com"}

	router := newRouter()
	router.Use(middleware.CSRF(allowed))
	router.POST("/refresh", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("GET requests are never checked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a sensitive request with no Origin or Referer passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a sensitive request from an allowed origin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a sensitive request from a disallowed origin is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("a disallowed referer is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.Header.Set("Referer", "https://evil.example.com/login")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestIdempotency(t *testing.T) {
	t.Run("a first submission proceeds and locks the key", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		cacheKey := "idemp:/orders:user-1:key-1"
		lockKey := cacheKey + ":lock"
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)

		router := newRouter()
		router.Use(func(c *gin.Context) { c.Set("user_id", "user-1"); c.Next() })
		router.Use(middleware.Idempotency(rdb))
		router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a cached response short-circuits a retry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		cacheKey := "idemp:/orders:user-1:key-2"
		mock.ExpectGet(cacheKey).SetVal(`{"id":"order-1"}`)

		router := newRouter()
		router.Use(func(c *gin.Context) { c.Set("user_id", "user-1"); c.Next() })
		router.Use(middleware.Idempotency(rdb))
		router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Idempotency-Key", "key-2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "order-1")
	})

	t.Run("a concurrent duplicate is rejected while the first is in flight", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		cacheKey := "idemp:/orders:user-1:key-3"
		lockKey := cacheKey + ":lock"
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		router := newRouter()
		router.Use(func(c *gin.Context) { c.Set("user_id", "user-1"); c.Next() })
		router.Use(middleware.Idempotency(rdb))
		router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Idempotency-Key", "key-3")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("no Idempotency-Key header is a no-op", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		router := newRouter()
		router.Use(middleware.Idempotency(rdb))
		router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func testRateTable() config.RateLimitTable {
	return config.RateLimitTable{
		Login:      config.RateLimitRule{Limit: 2, Window: time.Minute},
		APIDefault: config.RateLimitRule{Limit: 100, Window: time.Hour},
	}
}

func TestRateLimitByIP(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	gate := ratelimit.New(rdb, clock.NewReal(), testRateTable())

	router := newRouter()
	router.Use(middleware.RateLimitByIP(gate, ratelimit.CategoryLogin))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	key := "ratelimit:login:203.0.113.5"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitByUser(t *testing.T) {
	t.Run("an authenticated caller is rate-limited by user id", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testRateTable())

		router := newRouter()
		router.Use(func(c *gin.Context) { c.Set("user_id", "user-42"); c.Next() })
		router.Use(middleware.RateLimitByUser(gate, ratelimit.CategoryLogin))
		router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

		key := "ratelimit:login:user-42"
		mock.ExpectIncr(key).SetVal(3)
		mock.ExpectTTL(key).SetVal(30 * time.Second)

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("an unauthenticated caller skips the gate entirely", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		gate := ratelimit.New(rdb, clock.NewReal(), testRateTable())

		router := newRouter()
		router.Use(middleware.RateLimitByUser(gate, ratelimit.CategoryLogin))
		router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
