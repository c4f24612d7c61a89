package matcher

import (
	"errors"

	"github.com/sells-group/wo-matcher/internal/contract"
	"github.com/sells-group/wo-matcher/internal/gateway"
	"github.com/sells-group/wo-matcher/internal/sanitize"
)

// Class is the failure category of a matching run.
type Class string

// Failure classes. ClassNone means the run succeeded.
const (
	ClassNone               Class = ""
	ClassInputRejected      Class = "input_rejected"
	ClassGatewayUnavailable Class = "gateway_unavailable"
	ClassContractViolation  Class = "contract_violation"
	ClassUnknown            Class = "unknown"
)

// Classify maps err onto a failure class.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var rej *sanitize.RejectedError
	if errors.As(err, &rej) {
		return ClassInputRejected
	}
	if gateway.IsUnavailable(err) {
		return ClassGatewayUnavailable
	}
	var ce *contract.Error
	if errors.As(err, &ce) {
		return ClassContractViolation
	}
	return ClassUnknown
}

// outcome is the metrics label for a finished run.
func outcome(c Class) string {
	if c == ClassNone {
		return "success"
	}
	return string(c)
}
