package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	app := fiber.New()
	app.Use(metrics.Handler())
	app.Get("/sessions/:id", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("GET", "/sessions/:id", "204")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.inFlight))

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewHTTPMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewHTTPMetrics(prometheus.NewRegistry())
		NewHTTPMetrics(prometheus.NewRegistry())
	})
}
