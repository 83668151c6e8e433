package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"NOT_FOUND", http.StatusNotFound},
		{"ALREADY_POSTED", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{"LEASE_ACTIVE", http.StatusConflict},
		{"INVALID_STATUS_TRANSITION", http.StatusUnprocessableEntity},
		{"FRAUD_BLOCKED", http.StatusUnprocessableEntity},
		{"PAYMENT_DECLINED", http.StatusUnprocessableEntity},
		{"GATEWAY_ERROR", http.StatusBadGateway},
		{"BATCH_TOO_LARGE", http.StatusBadRequest},
		{"LISTING_DATA_REQUIRED", http.StatusBadRequest},
		{"UNAUTHORIZED", http.StatusUnauthorized},
		{"FORBIDDEN", http.StatusForbidden},
		{"RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests},
		{"SOMETHING_NOBODY_MAPPED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("NOT_FOUND", "Bill not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "Bill not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "amount must be positive"},
		{Field: "currency", Message: "currency is required"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
