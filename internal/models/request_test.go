package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tsinsight/internal/analytics"
)

func TestSeriesInput_ResolveValues(t *testing.T) {
	var req ForecastRequest
	require.NoError(t, json.Unmarshal([]byte(`{"values":[1, "2.5", 3],"periods":3}`), &req))

	series, err := req.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, series.Values())
	assert.Equal(t, int64(2), series[2].Timestamp)
	assert.Equal(t, 3, req.Periods)
}

func TestSeriesInput_ObservationsWin(t *testing.T) {
	in := SeriesInput{
		Values:       []interface{}{1.0},
		Observations: []analytics.Observation{{Value: 7, Timestamp: 100}, {Value: 8, Timestamp: 200}},
	}

	series, err := in.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, series.Values())
	assert.Equal(t, int64(200), series[1].Timestamp)
}

func TestSeriesInput_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     SeriesInput
		max    int
		status int
	}{
		{"non numeric", SeriesInput{Values: []interface{}{1.0, "abc"}}, 0, fiber.StatusBadRequest},
		{"nested", SeriesInput{Values: []interface{}{map[string]interface{}{}}}, 0, fiber.StatusBadRequest},
		{"too many", SeriesInput{Values: []interface{}{1.0, 2.0, 3.0}}, 2, fiber.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Resolve(tt.max)
			require.Error(t, err)

			var fe *fiber.Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.Code)
		})
	}
}

func TestSeriesInput_Empty(t *testing.T) {
	var in SeriesInput
	series, err := in.Resolve(10)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestDetectResponse_FlattensResult(t *testing.T) {
	var resp DetectResponse
	resp.Method = "iqr"
	resp.Status = analytics.StatusOK
	resp.Series = "cpu"

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "iqr", m["method"])
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, "cpu", m["series"])
}
