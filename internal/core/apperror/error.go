// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"kardex/internal/core/types"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule               = "BUSINESS_RULE_VIOLATION"
	CodeInsufficientStock          = "INSUFFICIENT_STOCK"
	CodeInsufficientAvailableStock = "INSUFFICIENT_AVAILABLE_STOCK"
	CodeOverRelease                = "OVER_RELEASE"
	CodeInvalidMovementDirection   = "INVALID_MOVEMENT_DIRECTION"
	CodeMissingReference           = "MISSING_REFERENCE"
	CodeNonPositiveQuantity        = "NON_POSITIVE_QUANTITY"
	CodeSameWarehouseTransfer      = "SAME_WAREHOUSE_TRANSFER"
	CodeUnknownMovementType        = "UNKNOWN_MOVEMENT_TYPE"
	CodeConcurrentModification     = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock is returned when an outgoing movement exceeds the
// available quantity and the warehouse disallows negative stock.
// The payload carries requested vs available so callers can build a message
// without re-querying.
func NewInsufficientStock(productID, warehouseID string, requested, available types.Quantity) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"requested":    requested.String(),
			"available":    available.String(),
		},
	}
}

// NewInsufficientAvailableStock is returned when a reservation exceeds the
// unreserved on-hand quantity.
func NewInsufficientAvailableStock(productID, warehouseID string, requested, available types.Quantity) *AppError {
	return &AppError{
		Code:       CodeInsufficientAvailableStock,
		Message:    "Insufficient available stock for reservation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"requested":    requested.String(),
			"available":    available.String(),
		},
	}
}

// NewOverRelease is returned when a release exceeds the reserved quantity.
func NewOverRelease(productID, warehouseID string, requested, reserved types.Quantity) *AppError {
	return &AppError{
		Code:       CodeOverRelease,
		Message:    "Release exceeds reserved quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"requested":    requested.String(),
			"reserved":     reserved.String(),
		},
	}
}

// NewInvalidMovementDirection is returned when a movement's warehouses do not
// match its type's effect (e.g. outgoing without a source warehouse).
func NewInvalidMovementDirection(typeCode, message string) *AppError {
	return &AppError{
		Code:       CodeInvalidMovementDirection,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"movement_type": typeCode},
	}
}

// NewMissingReference is returned when a reference-required movement type is
// posted without both reference fields.
func NewMissingReference(typeCode string) *AppError {
	return &AppError{
		Code:       CodeMissingReference,
		Message:    "Movement type requires a reference",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"movement_type": typeCode},
	}
}

// NewNonPositiveQuantity is returned when a movement quantity is zero or negative.
func NewNonPositiveQuantity(quantity types.Quantity) *AppError {
	return &AppError{
		Code:       CodeNonPositiveQuantity,
		Message:    "Quantity must be positive",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"quantity": quantity.String()},
	}
}

// NewSameWarehouseTransfer is returned when a transfer names one warehouse twice.
func NewSameWarehouseTransfer(warehouseID string) *AppError {
	return &AppError{
		Code:       CodeSameWarehouseTransfer,
		Message:    "Transfer source and destination must differ",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"warehouse_id": warehouseID},
	}
}

// NewUnknownMovementType is returned when a movement type code cannot be resolved.
func NewUnknownMovementType(code string) *AppError {
	return &AppError{
		Code:       CodeUnknownMovementType,
		Message:    "Unknown movement type",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"code": code},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsCode checks if error carries a specific business code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
