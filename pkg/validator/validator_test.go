package validator_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"testing"

	"github.com/aretw0/stateguard/pkg/adapters/memory"
	"github.com/aretw0/stateguard/pkg/composer"
	"github.com/aretw0/stateguard/pkg/config"
	"github.com/aretw0/stateguard/pkg/domain"
	"github.com/aretw0/stateguard/pkg/editable"
	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/aretw0/stateguard/pkg/session"
	"github.com/aretw0/stateguard/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionID  = "session-1"
	targetName = "/path/testAction.do"
)

type fixture struct {
	t         *testing.T
	cfg       *config.Config
	store     *memory.Store
	app       *session.Manager
	composer  *composer.Composer
	validator *validator.Validator
}

func newFixture(t *testing.T, raw map[string]any) *fixture {
	t.Helper()
	if raw == nil {
		raw = map[string]any{}
	}
	if _, ok := raw["start_actions"]; !ok {
		raw["start_actions"] = []any{"/testing\\.do"}
	}
	if _, ok := raw["start_parameters"]; !ok {
		raw["start_parameters"] = []any{"testingInitParameter"}
	}
	cfg, err := config.Decode(raw)
	require.NoError(t, err)

	store := memory.NewStore()
	app := session.NewManager(memory.NewStore())
	policy, err := editable.New()
	require.NoError(t, err)

	c := composer.New(cfg, store, sessionID, composer.WithScopeUpdater(app))
	require.NoError(t, c.StartPage(context.Background()))

	v := validator.New(cfg, session.NewResolver(store, app, cfg.ScopeMarker()),
		validator.WithCookieStore(store),
		validator.WithEditablePolicy(policy),
	)
	return &fixture{t: t, cfg: cfg, store: store, app: app, composer: c, validator: v}
}

// issue composes one state with the given parameter values and returns its identifier.
func (f *fixture) issue(method, action string, params ...[2]string) string {
	f.t.Helper()
	ctx := context.Background()
	f.composer.BeginRequest(method, action)
	for _, p := range params {
		f.composer.Compose(p[0], p[1], false)
	}
	id, err := f.composer.EndRequest(ctx)
	require.NoError(f.t, err)
	require.NoError(f.t, f.composer.EndPage(ctx))
	return id
}

func (f *fixture) validate(method, path string, params url.Values) validator.Result {
	return f.validator.Validate(context.Background(), validator.Request{
		SessionID: sessionID,
		Method:    method,
		Path:      path,
		Params:    params,
	})
}

func (f *fixture) assertInvalid(res validator.Result, reason domain.Reason, param string) {
	f.t.Helper()
	assert.Equal(f.t, validator.Invalid, res.Outcome)
	assert.Equal(f.t, reason, res.Reason)
	assert.Equal(f.t, param, res.Parameter)
}

func TestValidate_OnlyStateParameter(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome)
	assert.Empty(t, res.Params)
}

func TestValidate_StartAction(t *testing.T) {
	f := newFixture(t, nil)

	res := f.validate("GET", "/testing.do", url.Values{"anything": {"x"}})
	assert.Equal(t, validator.NotRequired, res.Outcome)
	assert.True(t, res.IsValid())
	assert.Equal(t, "x", res.Params.Get("anything"))
}

func TestValidate_StartParameter(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "testingInitParameter": {"0"}})
	assert.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "0", res.Params.Get("testingInitParameter"))
}

func TestValidate_SingleValue(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName, [2]string{"param1", "value1"})

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"value1"}, res.Params["param1"])
}

func TestValidate_MultiValue(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName,
		[2]string{"param1", "value1"},
		[2]string{"param1", "value2"},
		[2]string{"param2", "value3"},
	)

	res := f.validate("GET", targetName, url.Values{
		"_STATE_": {id},
		"param1":  {"1", "0"},
		"param2":  {"0"},
	})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"value2", "value1"}, res.Params["param1"], "submission order is kept")
	assert.Equal(t, []string{"value3"}, res.Params["param2"])
}

func TestValidate_TamperedIndices(t *testing.T) {
	tests := []struct {
		name     string
		composed []string
		sent     []string
		reason   domain.Reason
	}{
		{"out of bound among many", []string{"value1", "value2"}, []string{"0", "2"}, domain.ReasonIndexOutOfBound},
		{"out of bound single", []string{"value1"}, []string{"1"}, domain.ReasonIndexOutOfBound},
		{"repeated", []string{"value1", "value2"}, []string{"0", "0"}, domain.ReasonRepeatedValues},
		{"extra occurrence", []string{"value1"}, []string{"0", "0"}, domain.ReasonRepeatedValues},
		{"missing occurrence", []string{"value1", "value2"}, []string{"1"}, domain.ReasonParameterCountMismatch},
		{"not a number", []string{"value1"}, []string{"value1"}, domain.ReasonIndexOutOfBound},
		{"negative", []string{"value1"}, []string{"-1"}, domain.ReasonIndexOutOfBound},
		{"overflow", []string{"value"}, []string{"99999999999999999999"}, domain.ReasonIndexOutOfBound},
		{"signed", []string{"value1", "value2"}, []string{"+1", "0"}, domain.ReasonIndexOutOfBound},
		{"padded", []string{"value1"}, []string{" 0"}, domain.ReasonIndexOutOfBound},
		{"empty", []string{"value1"}, []string{""}, domain.ReasonIndexOutOfBound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			params := make([][2]string, 0, len(tt.composed))
			for _, v := range tt.composed {
				params = append(params, [2]string{"param1", v})
			}
			id := f.issue("GET", targetName, params...)

			res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": tt.sent})
			f.assertInvalid(res, tt.reason, "param1")
		})
	}
}

func TestValidate_MissingParameter(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName, [2]string{"param1", "v"}, [2]string{"param2", "w"})

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}})
	f.assertInvalid(res, domain.ReasonParameterCountMismatch, "param2")
}

func TestValidate_UnauthorizedParameter(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName, [2]string{"param1", "v"})

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}, "injected": {"1"}})
	f.assertInvalid(res, domain.ReasonUnauthorizedParameter, "injected")
}

func TestValidate_WrongStateIdentifier(t *testing.T) {
	f := newFixture(t, nil)
	f.composer.BeginRequest("GET", targetName)
	f.composer.Compose("param1", "value1", false)
	require.NoError(t, f.composer.EndPage(context.Background()))

	res := f.validate("GET", targetName, url.Values{"_STATE_": {"1-1"}, "param1": {"0"}})
	assert.False(t, res.IsValid())

	res = f.validate("GET", targetName, url.Values{"_STATE_": {"99-0-tok"}, "param1": {"0"}})
	f.assertInvalid(res, domain.ReasonPageNotFound, "_STATE_")
}

func TestValidate_IdentifierFailures(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName, [2]string{"param1", "value1"})
	parsed, err := domain.ParseStateID(id)
	require.NoError(t, err)

	tests := []struct {
		name   string
		params url.Values
		reason domain.Reason
	}{
		{"missing", url.Values{"param1": {"0"}}, domain.ReasonMalformedStateID},
		{"garbage", url.Values{"_STATE_": {"garbage"}}, domain.ReasonMalformedStateID},
		{"no token", url.Values{"_STATE_": {parsed.Page + "-0"}}, domain.ReasonMalformedStateID},
		{"wrong token", url.Values{"_STATE_": {parsed.Page + "-0-forged"}}, domain.ReasonMalformedStateID},
		{"unknown state", url.Values{"_STATE_": {parsed.Page + "-7-" + parsed.Token}}, domain.ReasonStateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.validate("GET", targetName, tt.params)
			f.assertInvalid(res, tt.reason, "_STATE_")
		})
	}
}

func TestValidate_ActionMismatch(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("POST", targetName)

	res := f.validate("POST", "/path/otherAction.do", url.Values{"_STATE_": {id}})
	f.assertInvalid(res, domain.ReasonActionMismatch, "")

	res = f.validate("GET", targetName, url.Values{"_STATE_": {id}})
	f.assertInvalid(res, domain.ReasonActionMismatch, "")

	res = f.validate("post", targetName, url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_EditableParameter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.composer.BeginRequest("POST", targetName)
	f.composer.Compose("paramName", "", true, composer.WithEditableType("text"))
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("POST", targetName, url.Values{"_STATE_": {id}, "paramName": {"<script>storeCookie()</script>"}})
	f.assertInvalid(res, domain.ReasonEditableValidationError, "paramName")

	res = f.validate("POST", targetName, url.Values{"_STATE_": {id}, "paramName": {"John"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "John", res.Params.Get("paramName"))

	res = f.validate("POST", targetName, url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome, "editable fields may be omitted")
}

func TestValidate_CookiesIntegrity(t *testing.T) {
	f := newFixture(t, nil)
	id := f.issue("GET", targetName, [2]string{"param1", "value1"})
	require.NoError(t, f.store.SaveCookies(context.Background(), sessionID, map[string]string{"name": "value"}))

	req := validator.Request{
		SessionID: sessionID,
		Method:    "GET",
		Path:      targetName,
		Params:    url.Values{"_STATE_": {id}, "param1": {"0"}},
		Cookies:   map[string]string{"name": "changedValue", "unknown": "x"},
	}
	res := f.validator.Validate(context.Background(), req)
	f.assertInvalid(res, domain.ReasonCookieTampered, "name")

	req.Cookies = map[string]string{"name": "value", "unknown": "x"}
	res = f.validator.Validate(context.Background(), req)
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_CookiesIntegrityDisabled(t *testing.T) {
	f := newFixture(t, map[string]any{"cookies_integrity": false})
	id := f.issue("GET", targetName)
	require.NoError(t, f.store.SaveCookies(context.Background(), sessionID, map[string]string{"name": "value"}))

	res := f.validator.Validate(context.Background(), validator.Request{
		SessionID: sessionID,
		Method:    "GET",
		Path:      targetName,
		Params:    url.Values{"_STATE_": {id}},
		Cookies:   map[string]string{"name": "changedValue"},
	})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_Whitespace(t *testing.T) {
	f := newFixture(t, nil)

	id := f.issue("POST", "/path/test Action.do")
	res := f.validate("POST", "/path/test%20Action.do", url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome)

	f = newFixture(t, nil)
	id = f.issue("POST", "/path/test%20Action.do")
	res = f.validate("POST", "/path/test%20Action.do", url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_HTMLEscapedFormAction(t *testing.T) {
	f := newFixture(t, nil)

	id := f.issue("POST", "/sample/TEST&Ntilde;/edit")
	res := f.validate("POST", url.QueryEscape("/sample/TESTÑ/edit"), url.Values{"_STATE_": {id}})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_ParamsWithAmpersand(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.composer.BeginRequest("GET", targetName)
	f.composer.ComposeParams("param1=111&amp;param2=Me+%26+You", "GET", "utf-8")
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}, "param2": {"0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "111", res.Params.Get("param1"))
	assert.Equal(t, "Me & You", res.Params.Get("param2"))
}

func TestValidate_LongLivedScope(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.composer.StartScope(ports.ApplicationScope)
	f.composer.BeginRequest("GET", targetName)
	f.composer.Compose("param1", "value1", false)
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	f.composer.EndScope()
	require.NoError(t, f.composer.EndPage(ctx))
	assert.Regexp(t, `^A-`, id)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "value1", res.Params.Get("param1"))

	res = f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"3"}})
	f.assertInvalid(res, domain.ReasonIndexOutOfBound, "param1")

	// Application states survive the session pages.
	names, err := f.store.ListPages(ctx, sessionID)
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, f.store.DeletePage(ctx, sessionID, name))
	}
	res = f.validator.Validate(ctx, validator.Request{
		SessionID: "another-session",
		Method:    "GET",
		Path:      targetName,
		Params:    url.Values{"_STATE_": {id}, "param1": {"0"}},
	})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_ConfidentialityDisabled(t *testing.T) {
	f := newFixture(t, map[string]any{"confidentiality": false})
	id := f.issue("GET", targetName, [2]string{"p", "value1"}, [2]string{"p", "value2"})

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "p": {"value2", "value1"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"value2", "value1"}, res.Params["p"])

	res = f.validate("GET", targetName, url.Values{"_STATE_": {id}, "p": {"value1", "value1"}})
	f.assertInvalid(res, domain.ReasonValueMismatch, "p")

	res = f.validate("GET", targetName, url.Values{"_STATE_": {id}, "p": {"value1"}})
	f.assertInvalid(res, domain.ReasonParameterCountMismatch, "p")
}

func TestValidate_ParameterWithoutValidation(t *testing.T) {
	f := newFixture(t, map[string]any{
		"parameters_without_validation": []any{
			map[string]any{"action": "/path/testAction\\.do", "parameters": []any{"free"}},
		},
	})
	id := f.issue("GET", targetName)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "free": {"anything"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "anything", res.Params.Get("free"))
}

func TestValidate_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	values := []string{"a", "b&c", "d e", "ñ"}

	f.composer.BeginRequest("POST", targetName)
	sent := make([]string, 0, len(values))
	for _, v := range values {
		sent = append(sent, f.composer.Compose("p", v, false))
	}
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("POST", targetName, url.Values{"_STATE_": {id}, "p": sent})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, values, res.Params["p"])
}

func TestValidate_IndependentStates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.composer.BeginRequest("GET", targetName)
	f.composer.Compose("p", "x", false)
	first, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)

	f.composer.BeginRequest("GET", targetName)
	f.composer.Compose("p", "x", false)
	f.composer.Compose("p", "y", false)
	second, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("GET", targetName, url.Values{"_STATE_": {first}, "p": {"0"}})
	assert.Equal(t, validator.Valid, res.Outcome)

	res = f.validate("GET", targetName, url.Values{"_STATE_": {second}, "p": {"1", "0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"y", "x"}, res.Params["p"])

	res = f.validate("GET", targetName, url.Values{"_STATE_": {first}, "p": {"1"}})
	f.assertInvalid(res, domain.ReasonIndexOutOfBound, "p")
}

func TestValidate_LongLivedScopeShortName(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.composer.StartScope("app")
	f.composer.BeginRequest("GET", targetName)
	f.composer.Compose("param1", "value1", false)
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	f.composer.EndScope()
	require.NoError(t, f.composer.EndPage(ctx))
	assert.Regexp(t, `^A-`, id)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, "value1", res.Params.Get("param1"))
}

func TestValidate_UnknownScopeStaysInPage(t *testing.T) {
	f := newFixture(t, nil)

	f.composer.StartScope("conversation")
	id := f.issue("GET", targetName, [2]string{"param1", "value1"})
	assert.NotRegexp(t, `^A-`, id)

	res := f.validate("GET", targetName, url.Values{"_STATE_": {id}, "param1": {"0"}})
	assert.Equal(t, validator.Valid, res.Outcome)
}

func TestValidate_EditableThenFixedValue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.composer.BeginRequest("POST", targetName)
	f.composer.Compose("x", "", true, composer.WithEditableType("text"))
	sent := f.composer.Compose("x", "secret", false)
	assert.Equal(t, "secret", sent, "an editable parameter never hands out indices")
	id, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("POST", targetName, url.Values{"_STATE_": {id}, "x": {sent}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"secret"}, res.Params["x"])
}

func TestValidate_NestedStates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	outer := f.composer.BeginRequest("POST", targetName)
	f.composer.Compose("x", "1", false)
	inner := f.composer.BeginRequest("GET", "/path/link.do")
	f.composer.Compose("x", "a", false)
	_, err := f.composer.EndRequest(ctx)
	require.NoError(t, err)
	f.composer.Compose("x", "2", false)
	_, err = f.composer.EndRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, f.composer.EndPage(ctx))

	res := f.validate("POST", targetName, url.Values{"_STATE_": {outer}, "x": {"1", "0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"2", "1"}, res.Params["x"])

	res = f.validate("GET", "/path/link.do", url.Values{"_STATE_": {inner}, "x": {"0"}})
	require.Equal(t, validator.Valid, res.Outcome)
	assert.Equal(t, []string{"a"}, res.Params["x"])

	res = f.validate("GET", "/path/link.do", url.Values{"_STATE_": {inner}, "x": {"1"}})
	f.assertInvalid(res, domain.ReasonIndexOutOfBound, "x")
}

func TestValidate_RejectionLogsAJAX(t *testing.T) {
	cfg, err := config.Decode(nil)
	require.NoError(t, err)
	store := memory.NewStore()

	var buf bytes.Buffer
	v := validator.New(cfg, session.NewResolver(store, nil, cfg.ScopeMarker()),
		validator.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	res := v.Validate(context.Background(), validator.Request{
		SessionID: sessionID,
		Method:    "GET",
		Path:      targetName,
		Params:    url.Values{"_STATE_": {"9-0-tok"}},
		AJAX:      true,
	})
	assert.Equal(t, validator.Invalid, res.Outcome)
	assert.Contains(t, buf.String(), "ajax=true")
}
