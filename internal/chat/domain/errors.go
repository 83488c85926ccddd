package domain

import "errors"

// error kinds, wrap with errprocess.Wrap so callers can errors.Is
var (
	ErrValidation         = errors.New("validation error")
	ErrAuthorization      = errors.New("authorization error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrNoOp               = errors.New("no-op")
	ErrStorage            = errors.New("storage error")

	// ErrVersionConflict CAS update lost the race, reload and retry
	ErrVersionConflict = errors.New("version conflict")
	// ErrTokenInvalid push transport says the device token is gone for good
	ErrTokenInvalid = errors.New("push token permanently invalid")
)
