package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("project: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("not owner: %w", ErrForbidden), http.StatusForbidden},
		{"conflict", fmt.Errorf("already applied: %w", ErrConflict), http.StatusConflict},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"invalid operation", ErrInvalidOperation, http.StatusBadRequest},
		{"invalid state", fmt.Errorf("deadline passed: %w", ErrInvalidState), http.StatusBadRequest},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"app error", New(http.StatusTeapot, "short and stout", nil), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapErrorToStatus(tc.err); got != tc.want {
				t.Fatalf("MapErrorToStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(http.StatusBadRequest, "bad section", ErrInvalidInput)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected AppError to unwrap to ErrInvalidInput")
	}
	if err.Error() != "bad section" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
