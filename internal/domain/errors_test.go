package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrIdentityNotFound,
			expected: "Identity not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	if got := ErrIdentityNotFound.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("png: invalid format")
	newErr := ErrDecodeImage.WithError(underlying)

	if newErr.Code != ErrDecodeImage.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrDecodeImage.Code)
	}

	if newErr.StatusCode != ErrDecodeImage.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrDecodeImage.StatusCode)
	}

	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}

	if !errors.Is(newErr, ErrDecodeImage) {
		t.Errorf("errors.Is should match the predefined error it was derived from")
	}

	if errors.Is(newErr, ErrInvalidIdentity) {
		t.Errorf("errors.Is should not match a different code")
	}
}

func TestErrorsAs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("enroll P1: %w", ErrDecodeImage.WithError(errors.New("bad bytes")))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("errors.As should match AppError")
	}

	if appErr.Code != "INVALID_IMAGE" {
		t.Errorf("Code = %v, want INVALID_IMAGE", appErr.Code)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrDecodeImage, "INVALID_IMAGE", 422},
		{ErrInvalidIdentity, "INVALID_IDENTITY", 422},
		{ErrIdentityNotFound, "IDENTITY_NOT_FOUND", 404},
		{ErrHistoryDisabled, "HISTORY_DISABLED", 503},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
