package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewMetricsIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncRoomsCreated()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.RoomsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.RoomsCreated))
}

func TestRecordCompile(t *testing.T) {
	m := NewMetrics()

	m.RecordCompile(OutcomeSuccess, 10*time.Millisecond)
	m.RecordCompile(OutcomeTimeout, 5*time.Second)
	m.RecordCompile(OutcomeRejected, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compiles.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compiles.WithLabelValues(OutcomeTimeout)))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalCompiles)
	assert.Equal(t, int64(2), snap.FailedCompiles)
}

func TestSnapshotTracksGauges(t *testing.T) {
	m := NewMetrics()

	m.SetRoomsActive(4)
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()

	snap := m.Snapshot()
	assert.Equal(t, int64(4), snap.ActiveRooms)
	assert.Equal(t, int64(1), snap.ActiveConnections)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WSConnections))
	assert.GreaterOrEqual(t, snap.UptimeSeconds, float64(0))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := NewMetrics()
	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/rooms/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/"+id, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/rooms/:id", "404")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordWSMessage(DirectionIn, "codeChange")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "coderoom_ws_messages_total"))
	assert.True(t, strings.Contains(body, "coderoom_uptime_seconds"))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	timer := NewTimer(m)

	d := timer.Stop(OutcomeError)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Compiles.WithLabelValues(OutcomeError)))

	// nil metrics is tolerated
	assert.NotPanics(t, func() { NewTimer(nil).Stop(OutcomeSuccess) })
}
