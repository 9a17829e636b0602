package domain

import "errors"

// ErrPageNotFound is returned by page stores when a page name cannot be found in the scope.
var ErrPageNotFound = errors.New("page not found")

// ErrNoOpenState is returned when a render closes a state it never opened.
// It signals a caller integration defect, not a client attack.
var ErrNoOpenState = errors.New("no open state")

// ErrMalformedStateID is returned when a composite identifier does not follow
// the "<page>-<state>-<token>" grammar.
var ErrMalformedStateID = errors.New("malformed state identifier")

// ErrStateNotFound is returned when a page holds no state with the requested id.
var ErrStateNotFound = errors.New("state not found")

// ErrNoPage is returned when a state is committed before any page was started.
var ErrNoPage = errors.New("no page started")
