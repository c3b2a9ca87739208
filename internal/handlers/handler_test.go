package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/services"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := logging.NewNop()
	store := profiles.NewMemoryStore()
	analyticsSvc := services.NewAnalyticsService(logger, config.DefaultConfig().Analytics, store, nil)
	h := New(logger, analyticsSvc, services.NewProfileService(logger, store))

	app := fiber.New()
	v1 := app.Group("/v1")
	v1.Post("/stats", h.Stats)
	v1.Post("/trend", h.Trend)
	v1.Post("/forecast", h.Forecast)
	v1.Get("/methods", h.Methods)
	v1.Post("/anomalies/detect", h.Detect)
	v1.Post("/anomalies/realtime/:series", h.RealTime)
	v1.Get("/anomalies/history", h.History)
	v1.Delete("/anomalies/history", h.ClearHistory)
	v1.Get("/anomalies/series", h.Series)
	v1.Get("/profiles", h.ListProfiles)
	v1.Get("/profiles/:name", h.GetProfile)
	v1.Put("/profiles/:name", h.PutProfile)
	v1.Delete("/profiles/:name", h.DeleteProfile)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, data
}

func spikeBody(series string) map[string]interface{} {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 10
		if i%2 == 1 {
			values[i] = 11
		}
	}
	values[10] = 100
	return map[string]interface{}{"values": values, "series": series}
}

func TestHandler_Stats(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "POST", "/v1/stats", map[string]interface{}{"values": []interface{}{1, "2", 3.5}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var out models.StatsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, analytics.StatusOK, out.Status)
	require.NotNil(t, out.Summary)
	assert.Equal(t, 3, out.Summary.Count)
	assert.Equal(t, 3.5, out.Summary.Max)
}

func TestHandler_InvalidInput(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"malformed json", "/v1/stats", "{not json", fiber.StatusBadRequest, "INVALID_JSON"},
		{"non numeric value", "/v1/stats", map[string]interface{}{"values": []interface{}{"abc"}}, fiber.StatusBadRequest, services.CodeInvalidValues},
		{"unknown forecast method", "/v1/forecast", map[string]interface{}{"values": []int{1, 2, 3}, "method": "arima"}, fiber.StatusBadRequest, services.CodeInvalidMethod},
		{"unknown detect method", "/v1/anomalies/detect", map[string]interface{}{"values": []int{1, 2, 3}, "method": "magic"}, fiber.StatusBadRequest, services.CodeInvalidMethod},
		{"missing profile", "/v1/trend", map[string]interface{}{"values": []int{1, 2, 3}, "profile": "nope"}, fiber.StatusNotFound, services.CodeProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, "POST", tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.wantCode, errResp.Error.Code)
		})
	}
}

func TestHandler_TrendAndForecast(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "POST", "/v1/trend", map[string]interface{}{"values": []int{1, 2, 3, 4, 5, 6, 7, 8}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var tr models.TrendResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.Equal(t, "increasing", string(tr.Trend.Direction))

	resp, body = doRequest(t, app, "POST", "/v1/forecast", map[string]interface{}{"values": []int{1, 2, 3, 4, 5}, "periods": 2})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var fc models.ForecastResponse
	require.NoError(t, json.Unmarshal(body, &fc))
	require.Len(t, fc.Points, 2)
	assert.InDelta(t, 6.0, fc.Points[0].Value, 1e-9)
}

func TestHandler_DetectAndHistory(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "POST", "/v1/anomalies/detect", spikeBody("cpu"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var det models.DetectResponse
	require.NoError(t, json.Unmarshal(body, &det))
	require.Equal(t, 1, det.Count)
	assert.Equal(t, 10, det.Anomalies[0].Index)

	resp, body = doRequest(t, app, "GET", "/v1/anomalies/history?series=cpu&limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var hist models.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Equal(t, 1, hist.Count)

	resp, body = doRequest(t, app, "GET", "/v1/anomalies/series", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var series models.SeriesListResponse
	require.NoError(t, json.Unmarshal(body, &series))
	assert.Equal(t, []string{"cpu"}, series.Series)

	resp, _ = doRequest(t, app, "GET", "/v1/anomalies/history?series=cpu&limit=x", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, "GET", "/v1/anomalies/history?series=unknown", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, "DELETE", "/v1/anomalies/history?series=cpu", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, body = doRequest(t, app, "GET", "/v1/anomalies/history?series=cpu", nil)
	require.NoError(t, json.Unmarshal(body, &hist))
	assert.Equal(t, 0, hist.Total)
}

func TestHandler_RealTimeNeedsHistory(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "POST", "/v1/anomalies/realtime/cpu", map[string]interface{}{"values": []int{1, 500}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var det models.DetectResponse
	require.NoError(t, json.Unmarshal(body, &det))
	assert.Equal(t, analytics.StatusInsufficientHistory, det.Status)
	assert.Equal(t, "cpu", det.Series)

	resp, _ = doRequest(t, app, "POST", "/v1/anomalies/realtime/bad*name", map[string]interface{}{"values": []int{1}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Profiles(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "PUT", "/v1/profiles/strict", map[string]interface{}{
		"description": "high sensitivity",
		"anomaly":     map[string]interface{}{"z_threshold": 2},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var p profiles.Profile
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "strict", p.Name)
	assert.Equal(t, 2.0, p.Anomaly.ZThreshold)

	resp, body = doRequest(t, app, "GET", "/v1/profiles", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list models.ProfileListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Count)

	resp, _ = doRequest(t, app, "GET", "/v1/profiles/strict", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Detect through the stored profile
	req := spikeBody("")
	req["profile"] = "strict"
	resp, body = doRequest(t, app, "POST", "/v1/anomalies/detect", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = doRequest(t, app, "PUT", "/v1/profiles/bad", map[string]interface{}{
		"forecast": map[string]interface{}{"alpha": 2},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, string(body))

	resp, _ = doRequest(t, app, "DELETE", "/v1/profiles/strict", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, "GET", "/v1/profiles/strict", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandler_Methods(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, "GET", "/v1/methods", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var m models.MethodsResponse
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Contains(t, m.Anomaly, "statistical")
	assert.Contains(t, m.Forecast, "trend")
}
