package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.CatalogLoads.WithLabelValues(Result(nil)).Inc()
	m.CatalogLoads.WithLabelValues(Result(errors.New("boom"))).Inc()
	m.CatalogLoads.WithLabelValues("ok").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogLoads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLoads.WithLabelValues("error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storefront_catalog_loads_total{result="ok"} 2`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Checkouts.WithLabelValues("ok").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Checkouts.WithLabelValues("ok")))
}
