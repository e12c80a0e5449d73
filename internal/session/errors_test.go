package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTypesMatchByType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		fatal  bool
	}{
		{"configuration", &ConfigurationError{Field: "client_id"}, &ConfigurationError{}, true},
		{"integrity", &IntegrityError{Reason: "state mismatch"}, &IntegrityError{}, false},
		{"exchange", &ExchangeError{Err: errors.New("400")}, &ExchangeError{}, false},
		{"identity", &IdentityCheckError{StatusCode: 401}, &IdentityCheckError{}, false},
		{"authorization", &AuthorizationError{Code: "access_denied"}, &AuthorizationError{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("boot: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("errors.Is(%v, %T) = false, want true", wrapped, tt.target)
			}
			if got := IsFatal(wrapped); got != tt.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", wrapped, got, tt.fatal)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ConfigurationError{Field: "redirect_uri"}, "configuration error: redirect_uri is not set"},
		{&IntegrityError{Reason: "state mismatch"}, "authorization integrity check failed: state mismatch"},
		{&IdentityCheckError{StatusCode: 403}, "identity check failed with status 403"},
		{&AuthorizationError{Code: "access_denied", Description: "nope"}, "authorization failed: access_denied - nope"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestExchangeErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ExchangeError{Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ExchangeError does not unwrap to its cause")
	}
}
