package domain

import "strconv"

// Parameter is a named field exposed by a State, with the values the server emitted for it.
type Parameter struct {
	// Name is the HTTP parameter name.
	Name string `json:"name"`

	// Values holds the decoded values in emission order.
	// The position of a value is its confidential index.
	Values []string `json:"values,omitempty"`

	// Editable marks user-editable fields (text, textarea, password...).
	// Editable parameters record no values; their content is checked by the editable policy.
	Editable bool `json:"editable,omitempty"`

	// EditableType tags the kind of editable field ("text", "textarea"...).
	EditableType string `json:"editable_type,omitempty"`

	// ActionParam is true when the parameter was embedded in the target URL.
	ActionParam bool `json:"action_param,omitempty"`
}

// NewParameter creates a parameter holding its first value.
func NewParameter(name, value string, editable bool, editableType string, actionParam bool) *Parameter {
	p := &Parameter{
		Name:         name,
		Editable:     editable,
		EditableType: editableType,
		ActionParam:  actionParam,
	}
	p.AddValue(value)
	return p
}

// AddValue appends a value. Editable parameters ignore values.
func (p *Parameter) AddValue(value string) {
	if p.Editable {
		return
	}
	p.Values = append(p.Values, value)
}

// Count returns the number of recorded values.
func (p *Parameter) Count() int {
	return len(p.Values)
}

// ValueAt returns the value recorded at position i.
func (p *Parameter) ValueAt(i int) (string, bool) {
	if i < 0 || i >= len(p.Values) {
		return "", false
	}
	return p.Values[i], true
}

// Contains reports whether value was recorded.
func (p *Parameter) Contains(value string) bool {
	for _, v := range p.Values {
		if v == value {
			return true
		}
	}
	return false
}

// ConfidentialValue returns the opaque index of the most recently recorded value.
func (p *Parameter) ConfidentialValue() string {
	if len(p.Values) == 0 {
		return "0"
	}
	return strconv.Itoa(len(p.Values) - 1)
}

// Clone returns a deep copy.
func (p *Parameter) Clone() *Parameter {
	c := *p
	if p.Values != nil {
		c.Values = append([]string(nil), p.Values...)
	}
	return &c
}
