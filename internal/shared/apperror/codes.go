package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput   = "INVALID_INPUT"
	CodeWeakPassword   = "WEAK_PASSWORD"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeExpired        = "EXPIRED"
	CodeBadSignature   = "BAD_SIGNATURE"
	CodeWrongTokenType = "WRONG_TOKEN_TYPE"
	CodeForbidden      = "FORBIDDEN"
	CodeCrossTenant    = "CROSS_TENANT_ACCESS"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInvalidState   = "INVALID_STATE"
	CodeDateInPast     = "DATE_IN_PAST"
	CodeNoActivePeriod = "NO_ACTIVE_PERIOD"
	CodeInviteInvalid  = "INVITE_INVALID"
	CodeRateLimited    = "RATE_LIMITED"
	CodeLoginLocked    = "LOGIN_LOCKED"
	CodeTimeout        = "TIMEOUT"
	CodeHashCorrupt    = "STORED_HASH_CORRUPT"
	CodeAuditImmutable = "AUDIT_IMMUTABLE"

	// Conflict subtypes (still surfaced as CodeConflict, refined via Details)
	SubtypeOverlappingRequest = "OVERLAPPING_REQUEST"
	SubtypeNotPending         = "NOT_PENDING"
	SubtypeAllocationExceeded = "ALLOCATION_EXCEEDED"
	SubtypeDuplicateUniqueKey = "DUPLICATE_UNIQUE_KEY"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
