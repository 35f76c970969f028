package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrInvalidPeriod is returned for a month/year pair outside the supported range.
	ErrInvalidPeriod = errors.New("invalid_period")
	// ErrInvalidCredentials covers both unknown usernames and password mismatches.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrMissingToken       = errors.New("missing_token")
	// ErrInvalidToken is a malformed, expired or tampered bearer token.
	ErrInvalidToken = errors.New("invalid_token")
	// ErrStorageUnavailable wraps connection and query failures of the backing store.
	ErrStorageUnavailable = errors.New("storage_unavailable")
)

// Field is a validation failure tied to a single input field.
type Field struct {
	Name string
	Msg  string
}

func (f *Field) Error() string { return f.Name + ": " + f.Msg }

// Unwrap lets errors.Is(err, ErrInvalid) match field errors.
func (f *Field) Unwrap() error { return ErrInvalid }

// Invalid builds a field validation error.
func Invalid(name, msg string) error { return &Field{Name: name, Msg: msg} }
