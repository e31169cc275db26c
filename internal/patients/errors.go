package patients

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup by id that matched nothing. It maps to a 404,
// not a server fault.
var ErrNotFound = errors.New("patient not found")

// ValidationError reports a submission failing required-field checks. The
// message is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError wraps a storage failure. Handlers must log the wrapped
// error in full but return only a generic message to the caller.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
