package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/vetclinic-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("vetclinic", "api", reg)
	h := New(m, reg)

	r := gin.New()
	r.Use(h.Middleware())
	r.GET("/shifts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	h.RegisterRoutes(r)

	for _, path := range []string{"/shifts/a", "/shifts/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/shifts/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vetclinic_api_http_requests_total")
}
