// Package editable checks values submitted for user-editable fields.
//
// The Policy rejects values that exceed a size limit, are not valid UTF-8, carry
// control characters, or match a rejected pattern (script injection and the like).
// Editable types can additionally be restricted to a whitelist pattern.
package editable

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/stateguard/pkg/config"
	"github.com/aretw0/stateguard/pkg/ports"
)

// DefaultMaxLength is 4KB per value.
const DefaultMaxLength = 4096

var (
	ErrTooLarge    = errors.New("value exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("value contains invalid UTF-8 sequences")
	ErrControlChar = errors.New("value contains control characters")
	ErrRejected    = errors.New("value matches a rejected pattern")
	ErrNotAllowed  = errors.New("value does not match the pattern of its type")
)

// DefaultRejected catches the usual script injection vectors.
var DefaultRejected = []string{
	`(?i)<\s*script`,
	`(?i)javascript\s*:`,
	`(?i)\bon[a-z]+\s*=`,
	`(?i)<\s*iframe`,
}

// Policy implements ports.EditablePolicy.
type Policy struct {
	maxLength int
	rejected  []*regexp.Regexp
	byType    map[string]*regexp.Regexp
}

var _ ports.EditablePolicy = (*Policy)(nil)

// Option configures the Policy.
type Option func(*Policy) error

// WithMaxLength sets the maximum byte length of a value. Zero keeps the default.
func WithMaxLength(n int) Option {
	return func(p *Policy) error {
		if n > 0 {
			p.maxLength = n
		}
		return nil
	}
}

// WithRejected replaces the rejected patterns.
func WithRejected(patterns ...string) Option {
	return func(p *Policy) error {
		p.rejected = p.rejected[:0]
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("invalid rejected pattern %q: %w", pattern, err)
			}
			p.rejected = append(p.rejected, re)
		}
		return nil
	}
}

// WithTypePattern requires values of editableType to match pattern entirely.
func WithTypePattern(editableType, pattern string) Option {
	return func(p *Policy) error {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return fmt.Errorf("invalid pattern for type %s: %w", editableType, err)
		}
		p.byType[editableType] = re
		return nil
	}
}

// New creates a Policy with the default rejected patterns.
func New(opts ...Option) (*Policy, error) {
	p := &Policy{
		maxLength: DefaultMaxLength,
		byType:    make(map[string]*regexp.Regexp),
	}
	all := append([]Option{WithRejected(DefaultRejected...)}, opts...)
	for _, opt := range all {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FromConfig builds a Policy from the editable section of the configuration.
func FromConfig(cfg config.EditableConfig) (*Policy, error) {
	opts := []Option{WithMaxLength(cfg.MaxLength)}
	if len(cfg.Rejected) > 0 {
		opts = append(opts, WithRejected(cfg.Rejected...))
	}
	for t, pattern := range cfg.ByType {
		opts = append(opts, WithTypePattern(t, pattern))
	}
	return New(opts...)
}

// ValidateEditable checks every value.
func (p *Policy) ValidateEditable(_ context.Context, _ string, _ string, values []string, editableType string) ports.EditableResult {
	for _, v := range values {
		if err := p.Check(v, editableType); err != nil {
			return ports.EditableResult{Valid: false, Reason: err.Error()}
		}
	}
	return ports.EditableResult{Valid: true}
}

// Check validates a single value.
func (p *Policy) Check(value, editableType string) error {
	if len(value) > p.maxLength {
		return fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(value), p.maxLength)
	}
	if !utf8.ValidString(value) {
		return ErrInvalidUTF8
	}
	for _, r := range value {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return ErrControlChar
		}
	}
	for _, re := range p.rejected {
		if re.MatchString(value) {
			return fmt.Errorf("%w: %s", ErrRejected, re.String())
		}
	}
	if re, ok := p.byType[editableType]; ok && value != "" && !re.MatchString(value) {
		return fmt.Errorf("%w: %s", ErrNotAllowed, editableType)
	}
	return nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
