package domain

import "errors"

// Error kinds. Module errors wrap one of these so the HTTP layer can map
// them with errors.Is without knowing every module sentinel.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrState        = errors.New("invalid state")
	ErrPayment      = errors.New("payment error")
	ErrExternalSync = errors.New("external sync error")
	ErrSignature    = errors.New("invalid signature")
)
