package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soltixdb/tsinsight/internal/monitor"
	"github.com/soltixdb/tsinsight/internal/subscriber"
)

// runCLI executes the root command and returns stdout
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSeries(t *testing.T) {
	fields, err := parseSeries([]byte("# cpu\n1\n2.5\n\n3\n"))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.5, 3.0}, fields["values"])

	fields, err = parseSeries([]byte(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Len(t, fields["values"], 3)

	fields, err = parseSeries([]byte(`[{"value": 1, "timestamp": 1000}]`))
	require.NoError(t, err)
	assert.Len(t, fields["observations"], 1)

	_, err = parseSeries([]byte("   "))
	assert.Error(t, err)

	_, err = parseSeries([]byte("1\nabc\n"))
	assert.Error(t, err)

	_, err = parseSeries([]byte("[1, 2"))
	assert.Error(t, err)
}

func TestStatsFromStdinYAML(t *testing.T) {
	out, err := runCLI(t, "4\n1\n3\n2\n5\n", "stats", "-")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ok", result["status"])

	summary := result["summary"].(map[string]interface{})
	assert.Equal(t, 5, summary["count"])
	assert.Equal(t, 3, summary["median"])
}

func TestForecastJSON(t *testing.T) {
	path := writeFile(t, "series.json", "[1, 2, 3, 4, 5]")

	out, err := runCLI(t, "", "forecast", "--periods", "3", "--format", "json", path)
	require.NoError(t, err)

	var result struct {
		Method string `json:"method"`
		Points []struct {
			Period int     `json:"period"`
			Value  float64 `json:"value"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "trend", result.Method)
	require.Len(t, result.Points, 3)
	assert.InDelta(t, 8.0, result.Points[2].Value, 1e-9)
}

func TestDetect(t *testing.T) {
	values := make([]string, 20)
	for i := range values {
		values[i] = "10"
		if i%2 == 1 {
			values[i] = "11"
		}
	}
	values[10] = "100"
	path := writeFile(t, "cpu.txt", strings.Join(values, "\n"))

	out, err := runCLI(t, "", "detect", "--format", "json", path)
	require.NoError(t, err)

	var result struct {
		Count     int `json:"count"`
		Anomalies []struct {
			Index int     `json:"index"`
			Value float64 `json:"value"`
		} `json:"anomalies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, 10, result.Anomalies[0].Index)
	assert.Equal(t, 100.0, result.Anomalies[0].Value)
}

func TestCLIErrors(t *testing.T) {
	path := writeFile(t, "series.txt", "1\n2\n3\n")

	_, err := runCLI(t, "", "stats", "--format", "xml", path)
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = runCLI(t, "", "detect", "--method", "magic", path)
	assert.ErrorContains(t, err, "INVALID_METHOD")

	_, err = runCLI(t, "", "stats", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = runCLI(t, "", "trend", "--profile", "nope", path)
	assert.ErrorContains(t, err, "PROFILE_NOT_FOUND")
}

func TestPublishToMemoryQueue(t *testing.T) {
	sub, err := subscriber.NewMemorySubscriber()
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	var (
		mu       sync.Mutex
		received []monitor.ObservationMessage
		subjects []string
	)
	err = sub.Subscribe(context.Background(), "clitest.>", func(ctx context.Context, subject string, data []byte) error {
		msg, err := monitor.DecodeObservations(data)
		if err != nil {
			return err
		}
		mu.Lock()
		received = append(received, msg)
		subjects = append(subjects, subject)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	path := writeFile(t, "obs.txt", "1\n2\n3\n")
	out, err := runCLI(t, "", "publish", "--queue", "memory", "--subject", "clitest",
		"--series", "cpu", "--compression", "snappy", "--format", "json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"subject": "clitest.cpu"`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "clitest.cpu", subjects[0])
	assert.Equal(t, "cpu", received[0].Series)
	require.Len(t, received[0].Observations, 3)
	assert.Equal(t, 3.0, received[0].Observations[2].Value)
}

func TestPublishRequiresValidSeries(t *testing.T) {
	path := writeFile(t, "obs.txt", "1\n")

	_, err := runCLI(t, "", "publish", "--queue", "memory", "--series", "bad series", path)
	assert.Error(t, err)
}
