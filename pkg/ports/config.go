package ports

// Config is the read-only configuration surface consumed by the composer and the validator.
type Config interface {
	// Confidentiality reports whether non-editable values are replaced by indices.
	Confidentiality() bool

	// IsStartParameter reports whether name bypasses state validation.
	IsStartParameter(name string) bool

	// IsStartAction reports whether the decoded target path bypasses state validation.
	IsStartAction(action string) bool

	// IsParameterWithoutValidation reports whether name is exempt for action.
	IsParameterWithoutValidation(action, name string) bool

	// IsParameterWithoutConfidentiality reports whether name is always sent in clear.
	IsParameterWithoutConfidentiality(name string) bool

	// CookiesIntegrity reports whether request cookies are checked against the fingerprint.
	CookiesIntegrity() bool

	// ReuseExistingPageInAjaxRequest reports whether AJAX renders extend the page they came from.
	ReuseExistingPageInAjaxRequest() bool

	// ScopeMarker is the page part of identifiers issued in the long-lived scope.
	ScopeMarker() string

	// StateParameterName is the request parameter carrying the state identifier.
	StateParameterName() string

	// ModifyStateParameterName is the request parameter carrying an identifier to extend.
	ModifyStateParameterName() string

	// Charset is the default character encoding of composed values.
	Charset() string
}
