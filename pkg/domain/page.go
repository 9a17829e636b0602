package domain

// Page is the server-side record of one rendered view and every State it exposed.
type Page struct {
	// Name is the page identifier inside its scope.
	Name string `json:"name"`

	// Token is the per-render random suffix of every identifier issued by this page.
	Token string `json:"token"`

	// States holds committed states ordered by ID.
	States []*State `json:"states,omitempty"`

	// FlowID optionally groups pages of one multi-step flow.
	FlowID string `json:"flow_id,omitempty"`

	// Parent names the page this one was extended from (AJAX renders).
	Parent string `json:"parent,omitempty"`

	// NextStateID is the id the next opened State receives.
	NextStateID int `json:"next_state_id"`

	// Seals holds opaque envelopes written by store middlewares, keyed by middleware.
	Seals map[string]string `json:"seals,omitempty"`
}

// NewPage creates an empty page.
func NewPage(name, token string) *Page {
	return &Page{
		Name:  name,
		Token: token,
	}
}

// AddState commits s. A state with an already committed id replaces the old one.
func (p *Page) AddState(s *State) {
	if s.ID >= p.NextStateID {
		p.NextStateID = s.ID + 1
	}
	for i, existing := range p.States {
		if existing.ID == s.ID {
			p.States[i] = s
			return
		}
	}
	p.States = append(p.States, s)
}

// State returns the committed state with the given id.
func (p *Page) State(id int) (*State, bool) {
	for _, s := range p.States {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// StatesCount returns the number of committed states.
func (p *Page) StatesCount() int {
	return len(p.States)
}

// Clone returns a deep copy.
func (p *Page) Clone() *Page {
	c := *p
	if p.Seals != nil {
		c.Seals = make(map[string]string, len(p.Seals))
		for k, v := range p.Seals {
			c.Seals[k] = v
		}
	}
	c.States = make([]*State, len(p.States))
	for i, s := range p.States {
		c.States[i] = s.Clone()
	}
	return &c
}
