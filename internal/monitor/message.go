package monitor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/compression"
)

// ObservationMessage is the payload producers publish on the observation
// subject, wrapped in a compression envelope.
type ObservationMessage struct {
	Series       string                  `json:"series"`
	Observations []analytics.Observation `json:"observations"`
}

// Alert is published for every anomaly the monitor flags
type Alert struct {
	ID         string          `json:"id"`
	Series     string          `json:"series"`
	Method     string          `json:"method"`
	Anomaly    anomaly.Anomaly `json:"anomaly"`
	DetectedAt time.Time       `json:"detected_at"`
}

// EncodeObservations marshals msg and seals it with algo
func EncodeObservations(algo compression.Algorithm, msg ObservationMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal observations: %w", err)
	}
	return compression.Seal(algo, data)
}

// DecodeObservations opens the envelope and unmarshals the message
func DecodeObservations(envelope []byte) (ObservationMessage, error) {
	var msg ObservationMessage

	data, err := compression.Open(envelope)
	if err != nil {
		return msg, fmt.Errorf("failed to open envelope: %w", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to parse observation message: %w", err)
	}
	return msg, nil
}
