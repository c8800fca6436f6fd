package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists    = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation       = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrDuplicateEvent   = NewDomainError("DUPLICATE_EVENT", "Event was already processed")
	ErrSignatureInvalid = NewDomainError("SIGNATURE_INVALID", "Webhook signature verification failed")
	ErrTransient        = NewDomainError("TRANSIENT_PLATFORM", "Platform temporarily unavailable")
)
