package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/markcheck/internal/check"
	"git.home.luguber.info/inful/markcheck/internal/markdown"
)

func TestObserve_CountsRunsAndVerdicts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	results := map[string][]check.Result{
		"a.md": {
			{Reference: markdown.Reference{Kind: markdown.KindLink}, Valid: true},
			{Reference: markdown.Reference{Kind: markdown.KindLink}, Valid: false},
			{Reference: markdown.Reference{Kind: markdown.KindImage}, Valid: false},
		},
		"b.md": {
			{Reference: markdown.Reference{Kind: markdown.KindLink}, Valid: true, Updated: true},
		},
	}

	m.Observe(results, 1700000000)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesChecked))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReferencesChecked.WithLabelValues("link")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReferencesChecked.WithLabelValues("image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokenReferences.WithLabelValues("link")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokenReferences.WithLabelValues("image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedirectsFixed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LastRunBroken))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastRunTimestamp))
}

func TestObserve_SecondRunAccumulatesCountersButResetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	broken := map[string][]check.Result{
		"a.md": {{Reference: markdown.Reference{Kind: markdown.KindLink}, Valid: false}},
	}
	clean := map[string][]check.Result{
		"a.md": {{Reference: markdown.Reference{Kind: markdown.KindLink}, Valid: true}},
	}

	m.Observe(broken, 100)
	m.Observe(clean, 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokenReferences.WithLabelValues("link")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunBroken))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.LastRunTimestamp))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(map[string][]check.Result{"a.md": nil}, 42)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "markcheck_runs_total 1")
}
