package domain

// State is one protected request target (a link or a form) inside a Page.
type State struct {
	// ID is unique and increasing within the owning Page.
	ID int `json:"id"`

	// Action is the decoded target path.
	Action string `json:"action"`

	// Method is the HTTP method the target expects. Empty means any.
	Method string `json:"method,omitempty"`

	// Parameters keeps emission order. Use Parameter(name) for lookups.
	Parameters []*Parameter `json:"parameters,omitempty"`

	// Params caches the raw query string composed through ComposeParams.
	Params string `json:"params,omitempty"`

	// PageID is the name of the owning Page, stamped when the State is committed.
	PageID string `json:"page_id,omitempty"`

	index map[string]int
}

// NewState creates an empty state for the given target.
func NewState(id int, method, action string) *State {
	return &State{
		ID:     id,
		Method: method,
		Action: action,
	}
}

// Parameter returns the parameter recorded under name, or nil.
func (s *State) Parameter(name string) *Parameter {
	if s.index != nil {
		if i, ok := s.index[name]; ok {
			return s.Parameters[i]
		}
		return nil
	}
	// Decoded from JSON: no index yet, and reads must not mutate.
	for _, p := range s.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AddParameter appends p, replacing any parameter with the same name in place.
func (s *State) AddParameter(p *Parameter) {
	s.ensureIndex()
	if i, ok := s.index[p.Name]; ok {
		s.Parameters[i] = p
		return
	}
	s.index[p.Name] = len(s.Parameters)
	s.Parameters = append(s.Parameters, p)
}

func (s *State) ensureIndex() {
	if s.index != nil {
		return
	}
	s.index = make(map[string]int, len(s.Parameters))
	for i, p := range s.Parameters {
		s.index[p.Name] = i
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		ID:     s.ID,
		Action: s.Action,
		Method: s.Method,
		Params: s.Params,
		PageID: s.PageID,
	}
	for _, p := range s.Parameters {
		c.AddParameter(p.Clone())
	}
	return c
}
