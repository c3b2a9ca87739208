package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveOperation(OpDetect, "ok", time.Now())
	AnomaliesTotal.WithLabelValues("zscore", "critical").Inc()
	AlertsPublished.WithLabelValues("ok").Inc()

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `tsinsight_operations_total{operation="detect",status="ok"}`)
	assert.Contains(t, text, `tsinsight_anomalies_total{method="zscore",severity="critical"}`)
	assert.Contains(t, text, "tsinsight_operation_duration_seconds_bucket")
	assert.Contains(t, text, `tsinsight_alerts_published_total{status="ok"}`)
}

func TestObserveOperation_EmptyStatusIsError(t *testing.T) {
	ObserveOperation(OpForecast, "", time.Now())

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	found := false
	for _, line := range strings.Split(string(body), "\n") {
		if strings.HasPrefix(line, `tsinsight_operations_total{operation="forecast",status="error"}`) {
			found = true
		}
	}
	assert.True(t, found)
}
