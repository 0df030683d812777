package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordPantryOp("upsert", "created")
	m.RecordPantryOp("upsert", "created")
	m.RecordPantryOp("decrement", "conflict")
	m.SetPantryItems(3)
	m.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, 10*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `pantry_operations_total{op="upsert",result="created"} 2`)
	assert.Contains(t, body, `pantry_operations_total{op="decrement",result="conflict"} 1`)
	assert.Contains(t, body, "pantry_items 3")
	assert.Contains(t, body, `pantry_http_requests_total{method="GET",path="/",status="200"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordPantryOp("list", "ok")
		m.SetPantryItems(1)
		m.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
