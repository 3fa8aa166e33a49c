// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cjmurphy27/barn-management-sub000/internal/service"
)

// Stable machine-readable codes. Clients branch on these, never on Detail.
const (
	CodeRecordNotFound        = "record_not_found"
	CodeInvalidQuantity       = "invalid_quantity"
	CodeInvalidLineItem       = "invalid_line_item"
	CodeExtractionUnavailable = "extraction_unavailable"
	CodeStoreUnavailable      = "store_unavailable"
	CodeScanNotFound          = "scan_not_found"
	CodeLineNotFound          = "line_not_found"
	CodeLineProcessed         = "line_already_processed"
	CodeScanExpired           = "scan_expired"
	CodeValidation            = "validation_error"
	CodeBadRequest            = "bad_request"
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
	CodeRateLimited           = "rate_limited"
	CodeInternal              = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable,omitempty"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "validation failed", Fields: fields}
}

type mapping struct {
	target    error
	status    int
	code      string
	retryable bool
	opaque    bool // hide the wrapped cause, keep the operation
}

// Order matters: the first sentinel found in the chain wins.
var mappings = []mapping{
	{service.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound, false, false},
	{service.ErrScanNotFound, http.StatusNotFound, CodeScanNotFound, false, false},
	{service.ErrLineNotFound, http.StatusNotFound, CodeLineNotFound, false, false},
	{service.ErrInvalidQuantity, http.StatusUnprocessableEntity, CodeInvalidQuantity, false, false},
	{service.ErrInvalidLineItem, http.StatusUnprocessableEntity, CodeInvalidLineItem, false, false},
	{service.ErrLineAlreadyProcessed, http.StatusConflict, CodeLineProcessed, false, false},
	{service.ErrScanExpired, http.StatusGone, CodeScanExpired, false, false},
	{service.ErrExtractionUnavailable, http.StatusBadGateway, CodeExtractionUnavailable, true, true},
	{service.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable, true, true},
}

// FromError maps a service error to its HTTP status and envelope. Unknown
// errors become an opaque 500 so internals never leak to the client.
func FromError(err error) (int, *APIError) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			detail := err.Error()
			if m.opaque {
				detail = opaqueDetail(err, m.target)
			}
			return m.status, &APIError{Code: m.code, Detail: detail, Retryable: m.retryable}
		}
	}
	return http.StatusInternalServerError, New(CodeInternal, "internal error")
}

// opaqueDetail keeps the failed action and item so the operator can retry by
// hand, but drops whatever driver or transport error sits under the sentinel.
func opaqueDetail(err, sentinel error) string {
	var oe *service.OperationError
	if errors.As(err, &oe) {
		return fmt.Sprintf("%s %q: %s", oe.Action, oe.Item, sentinel.Error())
	}
	return sentinel.Error()
}
