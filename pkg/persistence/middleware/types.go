package middleware

import "github.com/aretw0/stateguard/pkg/ports"

// Middleware allows wrapping a PageStore to add behavior.
type Middleware func(ports.PageStore) ports.PageStore

// Chain applies mws to store; the first middleware is the outermost.
func Chain(store ports.PageStore, mws ...Middleware) ports.PageStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// binding is the additional data that ties a sealed page to its location.
func binding(scope, name string) []byte {
	return []byte(scope + "\x00" + name)
}
