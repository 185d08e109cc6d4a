package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_HandlerServesRegisteredMetrics(t *testing.T) {
	c := New()
	c.JobsTotal.WithLabelValues("success").Inc()
	c.ReviewsPersisted.Inc()
	c.QueueDepth.Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "codereviewd_jobs_total")
	assert.Contains(t, body, "codereviewd_reviews_persisted_total")
	assert.Contains(t, body, "codereviewd_queue_depth 3")
}

func TestTwoCollectorsDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.JobsTotal.WithLabelValues("success").Inc()
	b.JobsTotal.WithLabelValues("failure").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.NotContains(t, rec.Body.String(), `outcome="failure"`)
}
