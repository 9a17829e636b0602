package domain

// Reason classifies why a request failed validation.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonMalformedStateID        Reason = "MALFORMED_STATE_ID"
	ReasonPageNotFound            Reason = "PAGE_NOT_FOUND"
	ReasonStateNotFound           Reason = "STATE_NOT_FOUND"
	ReasonActionMismatch          Reason = "ACTION_MISMATCH"
	ReasonRepeatedValues          Reason = "REPEATED_VALUES"
	ReasonIndexOutOfBound         Reason = "INDEX_OUT_OF_BOUND"
	ReasonParameterCountMismatch  Reason = "PARAMETER_COUNT_MISMATCH"
	ReasonValueMismatch           Reason = "VALUE_MISMATCH"
	ReasonUnauthorizedParameter   Reason = "UNAUTHORIZED_PARAMETER"
	ReasonCookieTampered          Reason = "COOKIE_TAMPERED"
	ReasonEditableValidationError Reason = "EDITABLE_VALIDATION_ERROR"
)

// Reasons lists every failure reason, in taxonomy order.
var Reasons = []Reason{
	ReasonMalformedStateID,
	ReasonPageNotFound,
	ReasonStateNotFound,
	ReasonActionMismatch,
	ReasonRepeatedValues,
	ReasonIndexOutOfBound,
	ReasonParameterCountMismatch,
	ReasonValueMismatch,
	ReasonUnauthorizedParameter,
	ReasonCookieTampered,
	ReasonEditableValidationError,
}

// String implements fmt.Stringer.
func (r Reason) String() string {
	return string(r)
}
