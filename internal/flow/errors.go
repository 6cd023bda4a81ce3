package flow

import "errors"

// Validation errors returned by Session and Profile. Callers match them with errors.Is.
var (
	ErrEmptyAnswer          = errors.New("answer cannot be empty")
	ErrFieldAlreadySet      = errors.New("field already answered")
	ErrUnknownField         = errors.New("unknown onboarding field")
	ErrInvalidChoice        = errors.New("answer is not one of the offered choices")
	ErrOutOfOrder           = errors.New("question answered out of order")
	ErrOnboardingIncomplete = errors.New("onboarding is not complete")
	ErrEmptyMessage         = errors.New("message cannot be empty")
	ErrBusy                 = errors.New("still answering the previous message")
	ErrNoPendingInput       = errors.New("no pending message")
	ErrUnknownVariant       = errors.New("unknown variant")
	ErrSessionNotFound      = errors.New("session not found")
	ErrCorruptLog           = errors.New("system turn may only appear at index 0")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsValidationError reports whether err was caused by user input rather than
// by the store or the process.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyAnswer, ErrFieldAlreadySet, ErrUnknownField, ErrInvalidChoice,
		ErrOutOfOrder, ErrOnboardingIncomplete, ErrEmptyMessage, ErrNoPendingInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
