package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value finds a counter or gauge sample by name and exact label set.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			if len(got) != len(labels) {
				continue
			}
			match := true
			for k, v := range labels {
				if got[k] != v {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue(), true
			}
			return metric.GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveStage("NQ=F", StageRejectionBlocks, 3)
	m.ObserveStage("NQ=F", StageRejectionBlocks, 2)
	m.ObserveStage("NQ=F", StageSetups, 0)
	m.FetchFailed("ES=F")
	m.DeliveryFailed("telegram")
	m.DeliveryFailed("telegram")
	m.StaleSkipped("ES=F")
	m.CycleDone(250*time.Millisecond, 7, time.Unix(1700000000, 0))

	v, ok := value(t, m, "wicksentinel_stage_total", map[string]string{"symbol": "NQ=F", "stage": StageRejectionBlocks})
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	_, ok = value(t, m, "wicksentinel_stage_total", map[string]string{"symbol": "NQ=F", "stage": StageSetups})
	assert.False(t, ok, "zero counts create no series")

	v, _ = value(t, m, "wicksentinel_fetch_failures_total", map[string]string{"symbol": "ES=F"})
	assert.Equal(t, 1.0, v)
	v, _ = value(t, m, "wicksentinel_delivery_failures_total", map[string]string{"sink": "telegram"})
	assert.Equal(t, 2.0, v)
	v, _ = value(t, m, "wicksentinel_stale_skips_total", map[string]string{"symbol": "ES=F"})
	assert.Equal(t, 1.0, v)
	v, _ = value(t, m, "wicksentinel_seen_setups", map[string]string{})
	assert.Equal(t, 7.0, v)
	v, _ = value(t, m, "wicksentinel_last_cycle_timestamp_seconds", map[string]string{})
	assert.Equal(t, 1700000000.0, v)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("NQ=F", StageNew, 1)
		m.FetchFailed("NQ=F")
		m.DeliveryFailed("log")
		m.StaleSkipped("NQ=F")
		m.CycleDone(time.Second, 1, time.Now())
	})
}

func TestServerRoutes(t *testing.T) {
	m := New()
	m.ObserveStage("NQ=F", StageDelivered, 1)
	srv := NewServer(":0", m, func() any { return map[string]int{"seen": 3} })
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body["seen"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wicksentinel_stage_total{stage="delivered",symbol="NQ=F"} 1`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerWithoutStatus(t *testing.T) {
	srv := NewServer(":0", New(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
