package validator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/composer"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/aretw0/stateguard/pkg/session"
)

// Validator checks requests against the States stored by the composer.
// It is safe for concurrent use.
type Validator struct {
	cfg      ports.Config
	resolver *session.Resolver

	cookies  ports.CookieStore
	editable ports.EditablePolicy
	logger   *slog.Logger
	metrics  ports.MetricsRecorder
}

// New creates a Validator resolving identifiers through resolver.
func New(cfg ports.Config, resolver *session.Resolver, opts ...Option) *Validator {
	v := &Validator{
		cfg:      cfg,
		resolver: resolver,
		logger:   logging.NewNop(),
		metrics:  ports.NopRecorder{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every check against req and returns the first failure, if any.
func (v *Validator) Validate(ctx context.Context, req Request) Result {
	res := v.validate(ctx, req)
	v.metrics.Validation(res.Outcome.String(), res.Reason.String())
	if res.Outcome == Invalid {
		v.logger.Warn("request rejected",
			"reason", res.Reason,
			"param", res.Parameter,
			"path", req.Path,
			"session", req.SessionID,
			"ajax", req.AJAX,
		)
	}
	return res
}

func (v *Validator) validate(ctx context.Context, req Request) Result {
	action := composer.DecodeAction(req.Path)
	if v.cfg.IsStartAction(action) {
		return Result{Outcome: NotRequired, Params: req.Params}
	}

	stateParam := v.cfg.StateParameterName()
	raw := req.Params.Get(stateParam)
	if raw == "" {
		return invalid(domain.ReasonMalformedStateID, stateParam)
	}

	_, state, err := v.resolver.Resolve(ctx, req.SessionID, raw)
	if err != nil {
		return v.resolveFailure(err, stateParam, raw)
	}

	if state.Action != action {
		return invalid(domain.ReasonActionMismatch, "")
	}
	if state.Method != "" && !strings.EqualFold(state.Method, req.Method) {
		return invalid(domain.ReasonActionMismatch, "")
	}

	out, res, ok := v.validateParameters(ctx, state, req.Params)
	if !ok {
		return res
	}

	if res, ok := v.validateCookies(ctx, req); !ok {
		return res
	}

	return Result{Outcome: Valid, Params: out}
}

func (v *Validator) resolveFailure(err error, stateParam, raw string) Result {
	switch {
	case errors.Is(err, domain.ErrMalformedStateID):
		return invalid(domain.ReasonMalformedStateID, stateParam)
	case errors.Is(err, domain.ErrStateNotFound):
		return invalid(domain.ReasonStateNotFound, stateParam)
	case errors.Is(err, domain.ErrPageNotFound):
		return invalid(domain.ReasonPageNotFound, stateParam)
	}
	// The page cannot be proven to exist.
	v.logger.Error("failed to resolve state", "id", raw, "err", err)
	return invalid(domain.ReasonPageNotFound, stateParam)
}

func (v *Validator) validateParameters(ctx context.Context, state *domain.State, params url.Values) (url.Values, Result, bool) {
	skip := map[string]bool{
		v.cfg.StateParameterName():       true,
		v.cfg.ModifyStateParameterName(): true,
	}

	names := make([]string, 0, len(params))
	for name := range params {
		if !skip[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make(url.Values, len(names))
	for _, name := range names {
		values := params[name]

		if v.cfg.IsStartParameter(name) || v.cfg.IsParameterWithoutValidation(state.Action, name) {
			out[name] = values
			continue
		}

		p := state.Parameter(name)
		if p == nil {
			return nil, invalid(domain.ReasonUnauthorizedParameter, name), false
		}

		if p.Editable {
			if !v.validateEditable(ctx, state.Action, p, values) {
				return nil, invalid(domain.ReasonEditableValidationError, name), false
			}
			out[name] = values
			continue
		}

		var (
			rewritten []string
			reason    domain.Reason
		)
		if v.cfg.Confidentiality() && !v.cfg.IsParameterWithoutConfidentiality(name) {
			rewritten, reason = checkConfidential(p, values)
		} else {
			rewritten, reason = checkPlain(p, values)
		}
		if reason != domain.ReasonNone {
			return nil, invalid(reason, name), false
		}
		out[name] = rewritten
	}

	// Everything the state issued must come back.
	for _, p := range state.Parameters {
		if p.Editable || p.Count() == 0 || skip[p.Name] {
			continue
		}
		if v.cfg.IsStartParameter(p.Name) || v.cfg.IsParameterWithoutValidation(state.Action, p.Name) {
			continue
		}
		if _, sent := params[p.Name]; !sent {
			return nil, invalid(domain.ReasonParameterCountMismatch, p.Name), false
		}
	}

	return out, Result{}, true
}

func (v *Validator) validateEditable(ctx context.Context, action string, p *domain.Parameter, values []string) bool {
	if v.editable == nil {
		return true
	}
	res := v.editable.ValidateEditable(ctx, action, p.Name, values, p.EditableType)
	if !res.Valid {
		v.logger.Debug("editable value rejected", "param", p.Name, "rule", res.Reason)
	}
	return res.Valid
}

// checkConfidential maps submitted indices back to the recorded values.
func checkConfidential(p *domain.Parameter, values []string) ([]string, domain.Reason) {
	seen := make(map[int]bool, len(values))
	rewritten := make([]string, 0, len(values))
	for _, raw := range values {
		i, ok := parseIndex(raw)
		if !ok {
			return nil, domain.ReasonIndexOutOfBound
		}
		if seen[i] {
			return nil, domain.ReasonRepeatedValues
		}
		seen[i] = true

		value, ok := p.ValueAt(i)
		if !ok {
			return nil, domain.ReasonIndexOutOfBound
		}
		rewritten = append(rewritten, value)
	}
	if len(values) != p.Count() {
		return nil, domain.ReasonParameterCountMismatch
	}
	return rewritten, domain.ReasonNone
}

// parseIndex accepts only a non-empty run of ASCII digits that fits an int.
func parseIndex(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(raw)
	return i, err == nil
}

// checkPlain requires the submitted values to be the recorded multiset.
func checkPlain(p *domain.Parameter, values []string) ([]string, domain.Reason) {
	if len(values) != p.Count() {
		return nil, domain.ReasonParameterCountMismatch
	}
	remaining := make(map[string]int, len(p.Values))
	for _, rv := range p.Values {
		remaining[rv]++
	}
	for _, sv := range values {
		if remaining[sv] == 0 {
			return nil, domain.ReasonValueMismatch
		}
		remaining[sv]--
	}
	return values, domain.ReasonNone
}

func (v *Validator) validateCookies(ctx context.Context, req Request) (Result, bool) {
	if !v.cfg.CookiesIntegrity() || v.cookies == nil || len(req.Cookies) == 0 {
		return Result{}, true
	}
	fingerprint, err := v.cookies.LoadCookies(ctx, req.SessionID)
	if err != nil {
		v.logger.Error("failed to load cookie fingerprint", "session", req.SessionID, "err", err)
		return invalid(domain.ReasonCookieTampered, ""), false
	}

	names := make([]string, 0, len(req.Cookies))
	for name := range req.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		expected, ok := fingerprint[name]
		if ok && expected != req.Cookies[name] {
			return invalid(domain.ReasonCookieTampered, name), false
		}
	}
	return Result{}, true
}
