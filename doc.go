/*
Package stateguard protects web applications against parameter tampering.

Every link and form a response exposes is recorded as a State of the rendered Page:
the target, the method and every non-editable value. Values can be replaced on the
wire by opaque indices ("confidentiality"), so sensitive data never leaves the server.
When the client submits a request, the Guard checks that it only sends back what the
State allowed and rewrites the indices to the real values.

# Usage

	g := stateguard.New(config.Default(),
		stateguard.WithPageStore(redisStore),
		stateguard.WithEditablePolicy(policy),
	)

	// Rendering a response.
	c, err := g.NewComposer(ctx, stateguard.ComposeRequest{SessionID: sid, Params: r.Form})
	c.BeginRequest("POST", "/account/update.do")
	accountField := c.Compose("account", "ES91-2100", false) // "0"
	state, _ := c.EndRequest(ctx)                          // goes in the _STATE_ field
	_ = c.EndPage(ctx)

	// Receiving the submission.
	res := g.Validate(ctx, validator.Request{SessionID: sid, Method: r.Method, Path: r.URL.EscapedPath(), Params: r.Form})
	if !res.IsValid() {
		// res.Reason, res.Parameter
	}

The pkg/adapters/http package wraps all of this in a chi middleware.
*/
package stateguard
