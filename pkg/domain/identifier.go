package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the parts of a composite identifier.
const Separator = "-"

// StateID is the composite identifier a client echoes back: "<page>-<state>-<token>".
// For long-lived scopes the page part is the scope marker ("A-3-<token>").
type StateID struct {
	Page  string
	State int
	Token string
}

// String renders the identifier.
func (id StateID) String() string {
	return id.Page + Separator + strconv.Itoa(id.State) + Separator + id.Token
}

// InScope reports whether the identifier addresses the long-lived scope named by marker.
func (id StateID) InScope(marker string) bool {
	return marker != "" && id.Page == marker
}

// ParseStateID splits raw into its parts. The token part may be absent ("1-1");
// whether it matches is decided against the stored page, not here.
func ParseStateID(raw string) (StateID, error) {
	parts := strings.SplitN(raw, Separator, 3)
	if len(parts) < 2 || parts[0] == "" {
		return StateID{}, fmt.Errorf("%w: %q", ErrMalformedStateID, raw)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return StateID{}, fmt.Errorf("%w: bad state id in %q", ErrMalformedStateID, raw)
	}
	id := StateID{Page: parts[0], State: n}
	if len(parts) == 3 {
		id.Token = parts[2]
	}
	return id, nil
}
