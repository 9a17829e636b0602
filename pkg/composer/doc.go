/*
Package composer records, while a response is rendered, every parameter value the
server exposes, grouped into States and Pages.

A Composer is confined to one render cycle. It carries a LIFO of open States so that
nested targets (a form holding a link) get independent identifiers:

	c := composer.New(cfg, store, sessionID)
	_ = c.StartPage(ctx)
	c.BeginRequest("POST", "/account/update.do")
	v := c.Compose("accountId", "42", false) // "0" under confidentiality
	id, _ := c.EndRequest(ctx)               // "<page>-<state>-<token>"
	_ = c.EndPage(ctx)

Values are stored decoded (percent-decoding in the value's charset, then HTML
unescaping when an entity may be present) so that the validator compares like
with like.
*/
package composer
