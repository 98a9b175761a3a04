package auth

import (
	"context"
	"errors"
)

// Operation names reported to Metrics.
const (
	OpRegister    = "register"
	OpLogin       = "login"
	OpLogout      = "logout"
	OpCheckAccess = "check_access"
	OpRevokeAll   = "revoke_all"
)

// Outcome labels reported to Metrics and recorded as audit reasons.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeStoreUnavailable   = "store_unavailable"
	OutcomeCanceled           = "canceled"
	OutcomeError              = "error"
)

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrDuplicateUser):
		return OutcomeDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, ErrStoreUnavailable):
		return OutcomeStoreUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
