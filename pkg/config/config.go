package config

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/stateguard/pkg/ports"
)

// Default values.
const (
	DefaultCharset              = "UTF-8"
	DefaultScopeMarker          = "A"
	DefaultStateParameter       = "_STATE_"
	DefaultModifyStateParameter = "_MODIFY_STATE_"
)

// Config is the engine configuration.
type Config struct {
	// EnableConfidentiality replaces non-editable values with indices.
	EnableConfidentiality bool `yaml:"confidentiality" mapstructure:"confidentiality"`

	// DefaultCharset is the encoding of values that do not carry their own.
	DefaultCharset string `yaml:"charset" mapstructure:"charset"`

	// VerifyCookies rejects requests whose cookies differ from the ones the server set.
	VerifyCookies bool `yaml:"cookies_integrity" mapstructure:"cookies_integrity"`

	// ReuseAjaxPage makes AJAX renders extend the page they were issued from.
	ReuseAjaxPage bool `yaml:"reuse_existing_page_in_ajax_request" mapstructure:"reuse_existing_page_in_ajax_request"`

	// LongLivedMarker is the page part of application-scope identifiers.
	LongLivedMarker string `yaml:"scope_marker" mapstructure:"scope_marker"`

	StateParameter       string `yaml:"state_parameter" mapstructure:"state_parameter"`
	ModifyStateParameter string `yaml:"modify_state_parameter" mapstructure:"modify_state_parameter"`

	// StartParameters are name patterns never validated.
	StartParameters []string `yaml:"start_parameters" mapstructure:"start_parameters"`

	// StartActions are path patterns that need no state (entry points).
	StartActions []string `yaml:"start_actions" mapstructure:"start_actions"`

	// ParametersWithoutConfidentiality are name patterns always sent in clear.
	ParametersWithoutConfidentiality []string `yaml:"parameters_without_confidentiality" mapstructure:"parameters_without_confidentiality"`

	// ParametersWithoutValidation exempts parameter name patterns per action pattern.
	ParametersWithoutValidation []Exemption `yaml:"parameters_without_validation" mapstructure:"parameters_without_validation"`

	Editable EditableConfig `yaml:"editable" mapstructure:"editable"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	startParameters   []*regexp.Regexp
	startActions      []*regexp.Regexp
	clearParameters   []*regexp.Regexp
	compiledExemption []compiledExemption
}

// Exemption lists parameters that skip validation on matching actions.
type Exemption struct {
	Action     string   `yaml:"action" mapstructure:"action"`
	Parameters []string `yaml:"parameters" mapstructure:"parameters"`
}

type compiledExemption struct {
	action     *regexp.Regexp
	parameters []*regexp.Regexp
}

// EditableConfig configures the pattern policy for user-editable fields.
type EditableConfig struct {
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`

	// Rejected are patterns that fail any editable value.
	Rejected []string `yaml:"rejected" mapstructure:"rejected"`

	// ByType restricts values of a given editable type to patterns that must match.
	ByType map[string]string `yaml:"by_type" mapstructure:"by_type"`
}

// StoreConfig selects the page store.
type StoreConfig struct {
	// Backend is "memory", "file" or "redis".
	Backend  string        `yaml:"backend" mapstructure:"backend"`
	Path     string        `yaml:"path" mapstructure:"path"`
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxPages int           `yaml:"max_pages" mapstructure:"max_pages"`

	// EncryptionKey enables at-rest encryption when set (hex, 32 bytes decoded).
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`

	// PreviousEncryptionKeys still decrypt pages written before a key rotation.
	PreviousEncryptionKeys []string `yaml:"previous_encryption_keys" mapstructure:"previous_encryption_keys"`

	// IntegrityKey enables page MACs when set.
	IntegrityKey string `yaml:"integrity_key" mapstructure:"integrity_key"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var _ ports.Config = (*Config)(nil)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := &Config{
		EnableConfidentiality: true,
		VerifyCookies:         true,
	}
	c.applyDefaults()
	// Defaults always compile.
	_ = c.compile()
	return c
}

func (c *Config) applyDefaults() {
	if c.DefaultCharset == "" {
		c.DefaultCharset = DefaultCharset
	}
	if c.LongLivedMarker == "" {
		c.LongLivedMarker = DefaultScopeMarker
	}
	if c.StateParameter == "" {
		c.StateParameter = DefaultStateParameter
	}
	if c.ModifyStateParameter == "" {
		c.ModifyStateParameter = DefaultModifyStateParameter
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validateMarker keeps the marker out of the decimal page names of sessions.
func validateMarker(marker string) error {
	if marker == "" {
		return fmt.Errorf("scope_marker must not be empty")
	}
	if strings.Contains(marker, "-") {
		return fmt.Errorf("scope_marker %q must not contain '-'", marker)
	}
	if _, err := strconv.Atoi(marker); err == nil || strings.Trim(marker, "0123456789") == "" {
		return fmt.Errorf("scope_marker %q must not be numeric", marker)
	}
	return nil
}

// Validate checks the configuration and compiles its patterns.
func (c *Config) Validate() error {
	if err := validateMarker(c.LongLivedMarker); err != nil {
		return err
	}
	if c.StateParameter == c.ModifyStateParameter {
		return fmt.Errorf("state_parameter and modify_state_parameter must differ")
	}
	switch c.Store.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.Addr == "" {
		return fmt.Errorf("store.addr is required for the redis backend")
	}
	if c.Editable.MaxLength < 0 {
		return fmt.Errorf("editable.max_length must not be negative")
	}
	if _, _, err := c.Store.EncryptionKeys(); err != nil {
		return err
	}
	if k := c.Store.IntegrityKey; k != "" && len(k) < MinIntegrityKeyLength {
		return fmt.Errorf("store.integrity_key must be at least %d bytes", MinIntegrityKeyLength)
	}
	return c.compile()
}

// MinIntegrityKeyLength is the shortest accepted store.integrity_key.
const MinIntegrityKeyLength = 16

// EncryptionKeys decodes the active and previous encryption keys.
// A nil active key means encryption is off.
func (s StoreConfig) EncryptionKeys() (active []byte, previous [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.PreviousEncryptionKeys) > 0 {
			return nil, nil, fmt.Errorf("store.previous_encryption_keys requires store.encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("invalid store.encryption_key: %w", err)
	}
	for i, k := range s.PreviousEncryptionKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid store.previous_encryption_keys[%d]: %w", i, err)
		}
		previous = append(previous, key)
	}
	return active, previous, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *Config) compile() error {
	var err error
	if c.startParameters, err = compileAll(c.StartParameters); err != nil {
		return fmt.Errorf("invalid start_parameters: %w", err)
	}
	if c.startActions, err = compileAll(c.StartActions); err != nil {
		return fmt.Errorf("invalid start_actions: %w", err)
	}
	if c.clearParameters, err = compileAll(c.ParametersWithoutConfidentiality); err != nil {
		return fmt.Errorf("invalid parameters_without_confidentiality: %w", err)
	}
	c.compiledExemption = c.compiledExemption[:0]
	for _, e := range c.ParametersWithoutValidation {
		action, err := compile(e.Action)
		if err != nil {
			return fmt.Errorf("invalid exemption action: %w", err)
		}
		params, err := compileAll(e.Parameters)
		if err != nil {
			return fmt.Errorf("invalid exemption parameters for %s: %w", e.Action, err)
		}
		c.compiledExemption = append(c.compiledExemption, compiledExemption{action: action, parameters: params})
	}
	return nil
}

// compile anchors pattern so that it matches whole names only.
func compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (c *Config) Confidentiality() bool { return c.EnableConfidentiality }

func (c *Config) IsStartParameter(name string) bool { return matchAny(c.startParameters, name) }

func (c *Config) IsStartAction(action string) bool { return matchAny(c.startActions, action) }

func (c *Config) IsParameterWithoutValidation(action, name string) bool {
	for _, e := range c.compiledExemption {
		if e.action.MatchString(action) && matchAny(e.parameters, name) {
			return true
		}
	}
	return false
}

func (c *Config) IsParameterWithoutConfidentiality(name string) bool {
	return matchAny(c.clearParameters, name)
}

func (c *Config) CookiesIntegrity() bool { return c.VerifyCookies }

func (c *Config) ReuseExistingPageInAjaxRequest() bool { return c.ReuseAjaxPage }

func (c *Config) ScopeMarker() string { return c.LongLivedMarker }

func (c *Config) StateParameterName() string { return c.StateParameter }

func (c *Config) ModifyStateParameterName() string { return c.ModifyStateParameter }

func (c *Config) Charset() string { return c.DefaultCharset }
