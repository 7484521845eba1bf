package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := testContext()
	SetRequestID(c, "req-123")

	Success(c, http.StatusOK, gin.H{"balance": "10.0000"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "req-123", resp.RequestID)
	assert.Nil(t, resp.Error)
}

func TestHandleDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        domainErrors.ValidationError{Field: "amount", Message: "required"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "not found",
			err:        domainErrors.ErrWalletNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "WALLET_NOT_FOUND",
		},
		{
			name:       "not active",
			err:        domainErrors.ErrWalletNotActive,
			wantStatus: http.StatusConflict,
			wantCode:   "WALLET_NOT_ACTIVE",
		},
		{
			name:       "not empty",
			err:        domainErrors.ErrWalletNotEmpty,
			wantStatus: http.StatusConflict,
			wantCode:   "WALLET_NOT_EMPTY",
		},
		{
			name:       "insufficient funds",
			err:        domainErrors.ErrInsufficientFunds,
			wantStatus: http.StatusConflict,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:       "duplicate reference",
			err:        domainErrors.ErrDuplicateReference,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_REFERENCE",
		},
		{
			name: "optimistic lock exhausted",
			err: &domainErrors.RetriesExhaustedError{
				ExhaustedKind: domainErrors.KindOptimisticLock,
				Operation:     "deposit",
				Attempts:      5,
				Err:           domainErrors.NewConcurrencyError("wallet", "w-1", ""),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "OPTIMISTIC_LOCK_EXHAUSTED",
		},
		{
			name: "transient exhausted",
			err: &domainErrors.RetriesExhaustedError{
				ExhaustedKind: domainErrors.KindTransientExhausted,
				Operation:     "deposit",
				Attempts:      3,
				Err:           errors.New("connection refused"),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "TRANSIENT_FAILURE_EXHAUSTED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext()

			errorID := HandleDomainError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, errorID, "non-internal errors carry no error id")

			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Empty(t, resp.Error.ErrorID)
		})
	}
}

func TestHandleDomainError_InternalIsOpaque(t *testing.T) {
	c, w := testContext()

	errorID := HandleDomainError(c, errors.New("pq: relation wallets does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotEmpty(t, errorID)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL", resp.Error.Code)
	assert.Equal(t, errorID, resp.Error.ErrorID)
	// The underlying message must never leak to the client.
	assert.Equal(t, "an unexpected error occurred", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "relation wallets")
}

func TestValidationErrorResponse(t *testing.T) {
	c, w := testContext()

	ValidationErrorResponse(c, []FieldError{
		{Field: "amount", Message: "must be between 0.01 and 1000000.00"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Fields, 1)
	assert.Equal(t, "amount", resp.Error.Fields[0].Field)
}
