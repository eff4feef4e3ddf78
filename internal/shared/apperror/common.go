package apperror

import "net/http"

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	// ErrCrossTenantAccess is deliberately reported as a 404, never a 403:
	// admitting the target exists in another tenant leaks its existence.
	ErrCrossTenantAccess = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrForbidden = New(
		CodeForbidden,
		"You do not have permission to access this resource",
		http.StatusForbidden,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrUnauthorized = New(
		CodeUnauthorized,
		"Authentication is required",
		http.StatusUnauthorized,
	)

	ErrInvalidCredential = New(
		CodeUnauthorized,
		"Invalid email or password",
		http.StatusUnauthorized,
	)

	ErrLoginLocked = New(
		CodeLoginLocked,
		"Too many failed attempts, account temporarily locked",
		http.StatusLocked,
	)

	ErrExpired = New(
		CodeExpired,
		"Token has expired",
		http.StatusUnauthorized,
	)

	ErrBadSignature = New(
		CodeBadSignature,
		"Token signature is invalid",
		http.StatusUnauthorized,
	)

	ErrWrongTokenType = New(
		CodeWrongTokenType,
		"Token is not valid for this operation",
		http.StatusUnauthorized,
	)

	ErrMalformedToken = New(
		CodeBadSignature,
		"Token is malformed",
		http.StatusUnauthorized,
	)

	ErrRefreshReplayDetected = New(
		CodeUnauthorized,
		"Refresh token reuse detected, all sessions revoked",
		http.StatusUnauthorized,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)

	ErrWeakPassword = New(
		CodeWeakPassword,
		"Password does not meet the minimum policy",
		http.StatusBadRequest,
	)

	ErrDateInPast = New(
		CodeDateInPast,
		"Requested dates cannot start in the past",
		http.StatusBadRequest,
	)

	ErrNoActivePeriod = New(
		CodeNoActivePeriod,
		"No active vacation period covers this date",
		http.StatusBadRequest,
	)

	ErrInvalidState = New(
		CodeInvalidState,
		"Operation is not valid for the current state",
		http.StatusConflict,
	)

	ErrInviteInvalid = New(
		CodeInviteInvalid,
		"Invite is invalid, expired, or already used",
		http.StatusBadRequest,
	)

	ErrOverlappingRequest = New(
		CodeConflict,
		"Request overlaps an existing non-terminal request",
		http.StatusConflict,
	).WithDetails(SubtypeOverlappingRequest)

	ErrNotPending = New(
		CodeConflict,
		"Request is no longer pending",
		http.StatusConflict,
	).WithDetails(SubtypeNotPending)

	ErrAllocationExceeded = New(
		CodeConflict,
		"Approval would exceed the remaining allocation",
		http.StatusConflict,
	).WithDetails(SubtypeAllocationExceeded)

	ErrDuplicateUniqueKey = New(
		CodeConflict,
		"A record with this value already exists",
		http.StatusConflict,
	).WithDetails(SubtypeDuplicateUniqueKey)

	ErrRateLimited = New(
		CodeRateLimited,
		"Too many requests",
		http.StatusTooManyRequests,
	)

	ErrTimeout = New(
		CodeTimeout,
		"Operation timed out",
		http.StatusGatewayTimeout,
	)

	ErrStoredHashCorrupt = New(
		CodeHashCorrupt,
		"Stored credential could not be parsed",
		http.StatusInternalServerError,
	)

	ErrAuditImmutable = New(
		CodeAuditImmutable,
		"Audit events cannot be modified",
		http.StatusInternalServerError,
	)
)

// RetryAfter returns a copy of ErrRateLimited/ErrLoginLocked carrying a
// Retry-After hint in seconds.
func RetryAfter(base *AppError, seconds int) *AppError {
	return base.WithDetails(map[string]int{"retry_after_seconds": seconds})
}
