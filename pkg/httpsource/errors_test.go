package httpsource

import (
	"errors"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{name: "client error should not retry", errorClass: ErrorClassClient, expected: false},
		{name: "server error should retry", errorClass: ErrorClassServer, expected: true},
		{name: "rate limit should retry", errorClass: ErrorClassRateLimit, expected: true},
		{name: "network error should retry", errorClass: ErrorClassNetwork, expected: true},
		{name: "decode error should not retry", errorClass: ErrorClassDecode, expected: false},
		{name: "empty error class should not retry", errorClass: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, result, tt.expected)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 400, want: ErrorClassClient},
		{status: 403, want: ErrorClassClient},
		{status: 429, want: ErrorClassRateLimit},
		{status: 500, want: ErrorClassServer},
		{status: 503, want: ErrorClassServer},
		{status: 200, want: ""},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		expected string
	}{
		{
			name: "error with wrapped error",
			err: &HTTPError{
				URL:        "http://example.com/items?page=1",
				StatusCode: 200,
				ErrorClass: ErrorClassDecode,
				Message:    "decode page",
				Err:        errors.New("unexpected token"),
			},
			expected: "http decode error (status 200) for http://example.com/items?page=1: decode page: unexpected token",
		},
		{
			name: "error without wrapped error",
			err: &HTTPError{
				URL:        "http://example.com/items",
				StatusCode: 400,
				ErrorClass: ErrorClassClient,
				Message:    "400 Bad Request",
			},
			expected: "http client error (status 400) for http://example.com/items: 400 Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestHTTPError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	httpErr := &HTTPError{StatusCode: 200, ErrorClass: ErrorClassDecode, Err: wrappedErr}

	if unwrapped := httpErr.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(httpErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	if unwrapped := (&HTTPError{StatusCode: 400}).Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}
