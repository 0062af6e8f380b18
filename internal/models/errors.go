package models

import (
	"errors"
	"fmt"
)

// Failure classes shared by every component. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrTransport covers inbound/outbound mail connectivity and auth failures
	ErrTransport = errors.New("mail transport failure")
	// ErrAdapter covers language model call failures and malformed model output
	ErrAdapter = errors.New("text intelligence failure")
	// ErrStorage covers persistence read/write failures
	ErrStorage = errors.New("storage failure")
	// ErrValidation covers rejected input at the service boundary
	ErrValidation = errors.New("validation failure")

	ErrNotFound        = fmt.Errorf("%w: record not found", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status value", ErrValidation)
	ErrInvalidCategory = fmt.Errorf("%w: invalid category", ErrValidation)
)
