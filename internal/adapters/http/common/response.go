// Package common holds the response types shared by handlers and middleware.
// Separate package so handlers and the router do not import each other.
package common

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error body. Code carries the error kind verbatim so
// clients can branch without parsing messages.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	ErrorID string       `json:"error_id,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError reports one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestIDKey is the gin context key and response header for the request id.
const RequestIDKey = "X-Request-ID"

// GetRequestID returns the request id set by the middleware.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return ""
}

// SetRequestID stores the request id in the context and response header.
func SetRequestID(c *gin.Context, id string) {
	c.Set(RequestIDKey, id)
	c.Header(RequestIDKey, id)
}

// Success sends a successful response.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ValidationErrorResponse reports invalid request fields.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    string(domainErrors.KindValidation),
		Message: "request validation failed",
		Fields:  fields,
	})
}

// BadRequestResponse reports a malformed request.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    string(domainErrors.KindValidation),
		Message: message,
	})
}

// UnauthorizedResponse reports a missing or invalid credential.
func UnauthorizedResponse(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, &APIError{
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// ForbiddenResponse reports an insufficient role.
func ForbiddenResponse(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, &APIError{
		Code:    "FORBIDDEN",
		Message: message,
	})
}

// statusByKind maps error kinds to HTTP status codes.
var statusByKind = map[domainErrors.Kind]int{
	domainErrors.KindValidation:         http.StatusBadRequest,
	domainErrors.KindWalletNotFound:     http.StatusNotFound,
	domainErrors.KindWalletNotActive:    http.StatusConflict,
	domainErrors.KindWalletNotEmpty:     http.StatusConflict,
	domainErrors.KindInsufficientFunds:  http.StatusConflict,
	domainErrors.KindDuplicateReference: http.StatusConflict,
	domainErrors.KindOptimisticLock:     http.StatusServiceUnavailable,
	domainErrors.KindTransientExhausted: http.StatusServiceUnavailable,
	domainErrors.KindInternal:           http.StatusInternalServerError,
}

// HandleDomainError translates an application error into an HTTP response.
// Internal errors get an opaque error id instead of the underlying message;
// the id also lands in the server log for correlation.
func HandleDomainError(c *gin.Context, err error) string {
	kind := domainErrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		kind = domainErrors.KindInternal
		status = http.StatusInternalServerError
	}

	if kind == domainErrors.KindInternal {
		errorID := uuid.NewString()
		Error(c, status, &APIError{
			Code:    string(kind),
			Message: "an unexpected error occurred",
			ErrorID: errorID,
		})
		return errorID
	}

	Error(c, status, &APIError{
		Code:    string(kind),
		Message: err.Error(),
	})
	return ""
}
