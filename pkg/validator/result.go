package validator

import (
	"net/url"

	"github.com/aretw0/stateguard/pkg/domain"
)

// Outcome is the verdict of a validation.
type Outcome int

const (
	Invalid Outcome = iota
	Valid
	NotRequired
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case NotRequired:
		return "not_required"
	}
	return "invalid"
}

// Request is what the validator needs from an inbound HTTP request.
type Request struct {
	// SessionID is the page store scope.
	SessionID string

	Method string

	// Path is the escaped request path, as sent by the client.
	Path string

	// Params holds every submitted value, query and body, in submission order.
	Params url.Values

	Cookies map[string]string

	// AJAX marks XMLHttpRequest submissions. It is reported with rejections.
	AJAX bool
}

// Result is the outcome of one validation.
type Result struct {
	Outcome Outcome

	// Reason is set when Outcome is Invalid.
	Reason domain.Reason

	// Parameter names the offending parameter, when there is one.
	Parameter string

	// Params is the rewritten parameter map of a Valid request.
	Params url.Values
}

// IsValid reports whether the request may proceed.
func (r Result) IsValid() bool {
	return r.Outcome != Invalid
}

func invalid(reason domain.Reason, param string) Result {
	return Result{Outcome: Invalid, Reason: reason, Parameter: param}
}
