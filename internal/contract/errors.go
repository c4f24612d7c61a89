package contract

import (
	"errors"
	"fmt"
)

// Kind classifies a contract failure.
type Kind string

const (
	NoStructuredPayload Kind = "no_structured_payload"
	MalformedPayload    Kind = "malformed_payload"
	MissingField        Kind = "missing_field"
	InvalidField        Kind = "invalid_field"
)

// Error is returned when a response cannot be turned into a Payload.
type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NoStructuredPayload:
		return "contract: no JSON object found in response"
	case MalformedPayload:
		if e.Err != nil {
			return fmt.Sprintf("contract: malformed payload: %v", e.Err)
		}
		return "contract: malformed payload"
	case MissingField:
		return fmt.Sprintf("contract: missing required field: %s", e.Field)
	case InvalidField:
		return fmt.Sprintf("contract: invalid field: %s", e.Field)
	default:
		return fmt.Sprintf("contract: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a contract Error of kind k.
func IsKind(err error, k Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}
