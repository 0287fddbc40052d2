package card

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures
type Kind string

const (
	// KindConfig means a required credential is missing. Raised before any call.
	KindConfig Kind = "config"
	// KindTransport means the service was unreachable or answered with a non-success status.
	KindTransport Kind = "transport"
	// KindContract means the service answered but the payload was unusable.
	KindContract Kind = "contract"
	// KindStorage means a persistence write or read failed.
	KindStorage Kind = "storage"
	// KindUnknown is reported for errors outside the taxonomy.
	KindUnknown Kind = "unknown"
)

var (
	ErrMissingCredential = errors.New("service credential is not configured")
	ErrNoInlineData      = errors.New("response contains no inline payload")
	ErrInvalidAnalysis   = errors.New("analysis does not match schema")
)

// Error carries the failure kind and the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fail wraps err with a kind and operation name. A nil err yields nil.
func Fail(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
