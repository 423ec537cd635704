package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "send_failed",
				Message: "payout could not be sent",
				Err:     errors.New("gateway timeout"),
			},
			expected: "payout could not be sent: gateway timeout",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_state",
				Message: "batch is already running",
			},
			expected: "batch is already running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	err := NewDomainError("send_failed", "payout could not be sent", ErrProviderUnavailable)

	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.Equal(t, ErrProviderUnavailable, err.Unwrap())
}

func TestNewDomainError_NilWrappedError(t *testing.T) {
	err := NewDomainError("test_code", "test message", nil)

	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Nil(t, err.Err)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("email", "must be a valid email address")

	assert.Equal(t, "email", err.Field)
	assert.Equal(t, "validation failed for field email: must be a valid email address", err.Error())

	var target *ValidationError
	wrapped := fmt.Errorf("create employee: %w", err)
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "email", target.Field)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrEmployeeNotFound, ErrEmailTaken, ErrAdminNotFound, ErrInvalidCredentials,
		ErrUnauthorized, ErrForbidden, ErrBatchNotFound, ErrInvalidStateTransition,
		ErrInvalidAmount, ErrInvalidMedium, ErrInvalidCurrency, ErrEmptyBatch,
		ErrBatchNotRunnable, ErrProviderNotFound, ErrProviderUnavailable,
		ErrProviderRejected, ErrProviderTimeout, ErrDuplicateIdempotencyKey,
		ErrLockAcquisitionFailed, ErrLockNotHeld, ErrValidationFailed, ErrInvalidInput,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
