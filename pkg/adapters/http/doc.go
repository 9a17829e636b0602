// Package http plugs a stateguard.Guard into a net/http stack.
//
// Middleware validates every inbound request before the handler runs, rewrites
// confidential indices back to their values and hands the handler a Composer for
// the page it is about to render. Links and forms of that page are recorded with
// Link, BeginForm, Field and EndForm.
package http
