// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Codigo and Estado are set for domain guard failures: Estado is the
// requisition's current status so a stale client can reconcile.
type APIError struct {
	Detail string `json:"detail"`
	Codigo string `json:"codigo,omitempty"`
	Estado *int   `json:"estado,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewDominio builds the envelope for a classified domain error.
func NewDominio(msg, codigo string, estado *int) *APIError {
	return &APIError{Detail: msg, Codigo: codigo, Estado: estado}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Codigo string            `json:"codigo"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Codigo: "validacion", Fields: fields}
}
