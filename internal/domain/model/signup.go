package model

import (
	"errors"
	"regexp"
)

// Validation failures. Their text is shown to the user verbatim.
var (
	ErrMissingFields = errors.New("Please fill out all fields.")         //nolint:staticcheck // user-facing text
	ErrInvalidEmail  = errors.New("Please enter a valid email address.") //nolint:staticcheck // user-facing text
)

// emailPattern is a minimal shape check; the server does real validation.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// SignupRequest is what the signup form submits.
type SignupRequest struct {
	Activity string
	Email    string
}

// Validate checks presence first, then the email shape.
func (r SignupRequest) Validate() error {
	if r.Email == "" || r.Activity == "" {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}
