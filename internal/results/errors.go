package results

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData is matched by every error caused by a table that could
	// not be found or derived.
	ErrMissingData = errors.New("missing data")

	// ErrCycle is returned when a result depends on itself.
	ErrCycle = errors.New("circular result dependency")

	// ErrNoResults is returned by Calculate when no requested result could
	// be produced.
	ErrNoResults = errors.New("no results could be produced")
)

// NotAvailableError reports a name that is neither supplied nor derivable.
type NotAvailableError struct {
	Name string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("'%s' is not accessible or available", e.Name)
}

func (e *NotAvailableError) Is(target error) bool { return target == ErrMissingData }

// MissingDataError reports a result whose formula could not obtain one of
// its dependencies.
type MissingDataError struct {
	Result string
	Err    error
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("cannot calculate %s due to missing data: %v", e.Result, e.Err)
}

func (e *MissingDataError) Unwrap() error { return e.Err }

func (e *MissingDataError) Is(target error) bool { return target == ErrMissingData }
