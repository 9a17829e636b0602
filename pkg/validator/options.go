package validator

import (
	"log/slog"

	"github.com/aretw0/stateguard/pkg/ports"
)

// Option configures a Validator.
type Option func(*Validator)

// WithCookieStore enables the cookie fingerprint comparison when the configuration asks for it.
func WithCookieStore(s ports.CookieStore) Option {
	return func(v *Validator) {
		v.cookies = s
	}
}

// WithEditablePolicy sets the checker of editable values. Without one, editable values pass.
func WithEditablePolicy(p ports.EditablePolicy) Option {
	return func(v *Validator) {
		v.editable = p
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithMetrics configures a metrics recorder.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}
