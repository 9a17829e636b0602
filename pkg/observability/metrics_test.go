package observability_test

import (
	"net/http/httptest"
	"testing"

	"github.com/aretw0/stateguard/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Validation("valid", "")
	m.Validation("invalid", "PAGE_NOT_FOUND")
	m.Validation("invalid", "PAGE_NOT_FOUND")
	m.StateComposed("page", 3)
	m.StateComposed("application", 0)
	m.PageStored()

	body := scrape(t, m)
	assert.Contains(t, body, `stateguard_validations_total{outcome="invalid",reason="PAGE_NOT_FOUND"} 2`)
	assert.Contains(t, body, `stateguard_validations_total{outcome="valid",reason="none"} 1`)
	assert.Contains(t, body, `stateguard_states_composed_total{scope="page"} 1`)
	assert.Contains(t, body, `stateguard_state_parameters_count 2`)
	assert.Contains(t, body, "stateguard_pages_stored_total 1")
}

func TestNewMetricsWith_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetricsWith(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotNil(t, families)

	assert.Panics(t, func() { observability.NewMetricsWith(reg) }, "collectors register once per registry")
}
