package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// a caller can't probe which emails exist
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an already-used email
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrNotFound is returned when a record is absent, soft-deleted, or not
	// owned by the caller (the ownership predicate matched nothing)
	ErrNotFound = errors.New("record not found")

	// ErrNoCompany is returned when a mutation requires an owned company
	// and the caller has none
	ErrNoCompany = errors.New("you must create a company first")

	// ErrCompanyExists rejects a second company for the same user
	ErrCompanyExists = errors.New("you already own a company")
)

// ValidationError carries per-field messages back to the form
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "invalid fields"
}

// fieldErrors accumulates validation failures per field
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
