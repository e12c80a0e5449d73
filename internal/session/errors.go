package session

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned by operations that need a usable session record.
var ErrNoSession = errors.New("no valid session")

// ErrUnsolicitedReturn is returned by HandleReturn for an error response that
// does not answer this tab's pending authorization. Such a response is
// dropped and the tab's session is left alone.
var ErrUnsolicitedReturn = errors.New("authorization response does not match a pending login")

// ConfigurationError indicates a deployment defect: a required setting such
// as the client id or redirect URI is missing. It is fatal and never retried.
type ConfigurationError struct {
	// Field is the missing setting, e.g. "client_id".
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Field)
}

// Is reports whether target is a ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// IntegrityError indicates the return leg could not be matched to a pending
// authorization, e.g. a state mismatch. It is treated as a possible CSRF
// attempt.
type IntegrityError struct {
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization integrity check failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authorization integrity check failed: %s", e.Reason)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Is reports whether target is an IntegrityError.
func (e *IntegrityError) Is(target error) bool {
	_, ok := target.(*IntegrityError)
	return ok
}

// ExchangeError indicates the token endpoint rejected the code or could not
// be reached.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Is reports whether target is an ExchangeError.
func (e *ExchangeError) Is(target error) bool {
	_, ok := target.(*ExchangeError)
	return ok
}

// IdentityCheckError indicates a token was issued but the identity endpoint
// refused it.
type IdentityCheckError struct {
	StatusCode int
	Err        error
}

func (e *IdentityCheckError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("identity check failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("identity check failed: %v", e.Err)
}

func (e *IdentityCheckError) Unwrap() error { return e.Err }

// Is reports whether target is an IdentityCheckError.
func (e *IdentityCheckError) Is(target error) bool {
	_, ok := target.(*IdentityCheckError)
	return ok
}

// AuthorizationError is the identity provider's own refusal, delivered as an
// error parameter on the return leg (e.g. access_denied). Retrying
// immediately would only repeat the refusal, so it is surfaced instead.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// Is reports whether target is an AuthorizationError.
func (e *AuthorizationError) Is(target error) bool {
	_, ok := target.(*AuthorizationError)
	return ok
}

// IsFatal reports whether err must be surfaced rather than resolved by
// restarting the login flow.
func IsFatal(err error) bool {
	return errors.Is(err, &ConfigurationError{}) || errors.Is(err, &AuthorizationError{})
}
