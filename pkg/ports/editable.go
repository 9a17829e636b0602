package ports

import "context"

// EditableResult is the verdict of an EditablePolicy.
type EditableResult struct {
	Valid bool

	// Reason names the rule that rejected the values.
	Reason string
}

// EditablePolicy validates values submitted for user-editable fields.
// Pattern matching (XSS blacklists and the like) lives behind this port.
type EditablePolicy interface {
	ValidateEditable(ctx context.Context, action, name string, values []string, editableType string) EditableResult
}

// EditablePolicyFunc adapts a function to EditablePolicy.
type EditablePolicyFunc func(ctx context.Context, action, name string, values []string, editableType string) EditableResult

// ValidateEditable calls f.
func (f EditablePolicyFunc) ValidateEditable(ctx context.Context, action, name string, values []string, editableType string) EditableResult {
	return f(ctx, action, name, values, editableType)
}
