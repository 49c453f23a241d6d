// Package apierr defines the typed error categories from spec.md §6/§7.
// Every error that crosses an API boundary implements Error, carries a
// stable ErrCode for the standardized envelope, and maps to an HTTP status.
package apierr

import "net/http"

// Coded is implemented by every typed error in this package.
type Coded interface {
	error
	ErrCode() string
	StatusCode() int
}

// Typed is a generic coded error with optional structured details, used for
// the envelope's `details{...}` field.
type Typed struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func (e *Typed) Error() string   { return e.Message }
func (e *Typed) ErrCode() string { return e.Code }
func (e *Typed) StatusCode() int { return e.Status }

func (e *Typed) WithDetails(d map[string]any) *Typed {
	e.Details = d
	return e
}

func newTyped(code, message string, status int) *Typed {
	return &Typed{Code: code, Message: message, Status: status}
}

// Authentication / authorization — never retried, always audit-logged.
func InvalidSignature(msg string) *Typed {
	return newTyped("INVALID_SIGNATURE", msg, http.StatusUnauthorized)
}
func InvalidAPIKey(msg string) *Typed {
	return newTyped("INVALID_API_KEY", msg, http.StatusUnauthorized)
}
func InsufficientPermissions(msg string) *Typed {
	return newTyped("INSUFFICIENT_PERMISSIONS", msg, http.StatusForbidden)
}
func FourEyesViolation(msg string) *Typed {
	return newTyped("FOUR_EYES_VIOLATION", msg, http.StatusConflict)
}

// Validation.
func InvalidInput(msg string) *Typed {
	return newTyped("INVALID_INPUT", msg, http.StatusBadRequest)
}

// Tenant state — not retried; customer-facing paths render a non-leaking
// apology instead of this message.
func SubscriptionInactive(msg string) *Typed {
	return newTyped("SUBSCRIPTION_INACTIVE", msg, http.StatusServiceUnavailable)
}
func FeatureLimitExceeded(msg string) *Typed {
	return newTyped("FEATURE_LIMIT_EXCEEDED", msg, http.StatusForbidden)
}
func DailyMessageLimit(msg string) *Typed {
	return newTyped("DAILY_MESSAGE_LIMIT", msg, http.StatusTooManyRequests)
}
func RateLimitExceeded(msg string) *Typed {
	return newTyped("RATE_LIMIT_EXCEEDED", msg, http.StatusTooManyRequests)
}

// Tenant / resource resolution.
func TenantNotFound(msg string) *Typed {
	return newTyped("TENANT_NOT_FOUND", msg, http.StatusNotFound)
}
func ResourceNotFound(msg string) *Typed {
	return newTyped("RESOURCE_NOT_FOUND", msg, http.StatusNotFound)
}
func Conflict(msg string) *Typed {
	return newTyped("CONFLICT", msg, http.StatusConflict)
}
func CapacityExceeded(msg string) *Typed {
	return newTyped("CAPACITY_EXCEEDED", msg, http.StatusConflict)
}

// Transient external / fatal internal.
func ExternalAPIError(msg string, retryable bool) *Typed {
	return newTyped("EXTERNAL_API_ERROR", msg, http.StatusBadGateway).
		WithDetails(map[string]any{"retryable": retryable})
}
func Internal(msg string) *Typed {
	return newTyped("INTERNAL_ERROR", msg, http.StatusInternalServerError)
}
func ServiceUnavailable(msg string) *Typed {
	return newTyped("SERVICE_UNAVAILABLE", msg, http.StatusServiceUnavailable)
}

// Envelope is the standardized error response body from spec.md §6.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToEnvelope renders any Coded error into the wire envelope. A plain error
// that doesn't implement Coded is masked as INTERNAL_ERROR so internals
// never leak to a caller.
func ToEnvelope(err error) (int, Envelope) {
	if c, ok := err.(Coded); ok {
		var details map[string]any
		if t, ok := err.(*Typed); ok {
			details = t.Details
		}
		return c.StatusCode(), Envelope{Error: EnvelopeBody{
			Code:    c.ErrCode(),
			Message: c.Error(),
			Details: details,
		}}
	}
	return http.StatusInternalServerError, Envelope{Error: EnvelopeBody{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}}
}
