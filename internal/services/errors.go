package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by actions attempted without a session
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoChallenge is returned when an action needs a current challenge
	ErrNoChallenge = errors.New("no current challenge")
)

// ValidationError is an invariant violation caught before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ActionError is a failed user action. Message is fit for display.
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// DisplayMessage returns the message to show for a failed action.
func DisplayMessage(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	var a *ActionError
	if errors.As(err, &a) {
		return a.Message
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return "You are not signed in"
	}
	if errors.Is(err, ErrNoChallenge) {
		return "No challenge in progress"
	}
	return "Something went wrong"
}
