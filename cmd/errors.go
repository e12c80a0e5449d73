package cmd

import "fmt"

// AuthRequiredError indicates the tab holds no valid session.
type AuthRequiredError struct {
	Tab string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`No valid session for tab %q

To log in, run:
  sessionkeeper login --tab %s`, e.Tab, e.Tab)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthFailedError indicates a login did not complete.
type AuthFailedError struct {
	Tab    string
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Login failed for tab %q: %v

To retry, run:
  sessionkeeper login --tab %s`, e.Tab, e.Reason, e.Tab)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}
