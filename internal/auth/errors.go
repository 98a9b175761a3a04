package auth

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Field-level validation errors. All of them match ErrValidation.
var (
	ErrUsernameRequired = fmt.Errorf("%w: username is required", ErrValidation)
	ErrEmailRequired    = fmt.Errorf("%w: email is required", ErrValidation)
	ErrPasswordRequired = fmt.Errorf("%w: password is required", ErrValidation)
	ErrUsernameInvalid  = fmt.Errorf("%w: username must be 3-64 characters, alphanumeric and underscore/hyphen only", ErrValidation)
	ErrEmailInvalid     = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrPasswordTooLong  = fmt.Errorf("%w: password is too long", ErrValidation)
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
