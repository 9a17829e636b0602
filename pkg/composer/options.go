package composer

import (
	"log/slog"

	"github.com/aretw0/stateguard/pkg/ports"
)

// WithEditableType tags an editable parameter with its field type ("text", "textarea"...).
func WithEditableType(t string) ports.ComposeOption {
	return func(s *ports.ComposeSettings) {
		s.EditableType = t
	}
}

// AsActionParam marks a parameter embedded in the target URL.
func AsActionParam() ports.ComposeOption {
	return func(s *ports.ComposeSettings) {
		s.ActionParam = true
	}
}

// WithMethod sets the method of the target the parameter is sent with. Default GET.
func WithMethod(method string) ports.ComposeOption {
	return func(s *ports.ComposeSettings) {
		s.Method = method
	}
}

// WithCharset sets the charset the value was encoded with.
func WithCharset(charset string) ports.ComposeOption {
	return func(s *ports.ComposeSettings) {
		s.Charset = charset
	}
}

// Option configures a Composer.
type Option func(*Composer)

// WithScopeUpdater enables the long-lived application scope.
// Scoped states are appended to the shared page through a locked read-modify-write.
func WithScopeUpdater(u ScopeUpdater) Option {
	return func(c *Composer) {
		c.app = u
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// WithMetrics configures a metrics recorder.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(c *Composer) {
		c.metrics = m
	}
}

// WithTokenGenerator replaces the random page token source.
func WithTokenGenerator(gen func() string) Option {
	return func(c *Composer) {
		c.token = gen
	}
}
