package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/soltixdb/tsinsight/internal/utils"
)

// readSeriesFile reads path, or stdin for "-"
func readSeriesFile(path string, stdin io.Reader) (map[string]interface{}, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseSeries(data)
}

// parseSeries turns a series file into the request fields carrying it:
// "values" for bare numbers, "observations" for timestamped objects
func parseSeries(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("series file is empty")
	}

	if trimmed[0] != '[' {
		values, err := utils.ParseFloatLines(string(trimmed))
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return map[string]interface{}{"values": out}, nil
	}

	var items []interface{}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("invalid JSON series: %w", err)
	}
	if len(items) > 0 {
		if _, ok := items[0].(map[string]interface{}); ok {
			return map[string]interface{}{"observations": items}, nil
		}
	}
	return map[string]interface{}{"values": items}, nil
}
