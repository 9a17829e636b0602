package ports

// ApplicationScope is the store scope of the long-lived page shared by every session.
// The page is named after the configured scope marker.
const ApplicationScope = "application"

// ApplicationScopeAlias is the short name accepted wherever ApplicationScope is.
const ApplicationScopeAlias = "app"

// IsApplicationScope reports whether name designates the application scope.
func IsApplicationScope(name string) bool {
	return name == ApplicationScope || name == ApplicationScopeAlias
}
