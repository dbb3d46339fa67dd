package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"
	ErrMissingScope  ErrCode = "MISSING_SCOPE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation       ErrCode = "VALIDATION_ERROR"
	ErrInvalidID        ErrCode = "INVALID_ID"
	ErrInvalidPayload   ErrCode = "INVALID_PAYLOAD"
	ErrDocumentTooLarge ErrCode = "DOCUMENT_TOO_LARGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrCourseNotFound ErrCode = "COURSE_NOT_FOUND"
	ErrJobNotFound    ErrCode = "JOB_NOT_FOUND"

	// ─── Curriculum graph ──────────────────────────────────────────────
	ErrCycleDetected ErrCode = "CYCLE_DETECTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrMissingScope:
		return "Token does not grant write access to curricula."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Curriculum document failed validation."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrDocumentTooLarge:
		return "Curriculum document exceeds the size limit."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Curriculum not found."
	case ErrCourseNotFound:
		return "Course not found in this curriculum."
	case ErrJobNotFound:
		return "Import job not found or expired."

	// ─── Curriculum graph ──────────────────────────────────────────────
	case ErrCycleDetected:
		return "Prerequisites form a cycle; no study order exists."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "Unexpected error."
	}
}
