// Package monitor consumes observation messages from the queue, runs anomaly
// detection per series and publishes an alert for every flagged point.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/metrics"
	"github.com/soltixdb/tsinsight/internal/queue"
	"github.com/soltixdb/tsinsight/internal/subscriber"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// Message outcomes recorded in MonitorMessagesTotal
const (
	statusOK       = "ok"
	statusInvalid  = "decode_error"
	statusDropped  = "dropped"
	statusFailed   = "publish_error"
	alertStatusOK  = "ok"
	alertStatusErr = "error"
)

// maxPendingMessages bounds the alerts held for messages whose publish failed
const maxPendingMessages = 1024

// Monitor runs the streaming anomaly pipeline
type Monitor struct {
	logger     *logging.Logger
	cfg        config.MonitorConfig
	registry   *Registry
	subscriber subscriber.Subscriber
	publisher  queue.Publisher
	wildcard   bool
	now        func() time.Time

	mu      sync.Mutex
	pattern string // Subject the monitor is subscribed to, empty when stopped

	// Alerts of messages whose publish failed, keyed by message. A redelivery
	// republishes them instead of running detection twice.
	pendingMu    sync.Mutex
	pending      map[uuid.UUID][]Alert
	pendingOrder []uuid.UUID
}

// New creates a monitor. queueType decides whether the observation subject
// is subscribed with a trailing wildcard or literally.
func New(
	logger *logging.Logger,
	cfg config.MonitorConfig,
	registry *Registry,
	sub subscriber.Subscriber,
	pub queue.Publisher,
	queueType utils.QueueType,
) (*Monitor, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber is nil")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if cfg.Method == "" {
		cfg.Method = anomaly.MethodStatistical
	}

	return &Monitor{
		logger:     logger.With("component", "monitor"),
		cfg:        cfg,
		registry:   registry,
		subscriber: sub,
		publisher:  pub,
		wildcard:   subscriber.SupportsWildcards(queueType),
		now:        time.Now,
		pending:    make(map[uuid.UUID][]Alert),
	}, nil
}

// ObservationSubject returns the subject a producer publishes observations
// of series on. Brokers matched literally share the base subject the monitor
// reads, and the series travels in the payload.
func ObservationSubject(base, series string, queueType utils.QueueType) string {
	if series == "" || !subscriber.SupportsWildcards(queueType) {
		return base
	}
	return base + "." + series
}

// Registry returns the per-series detector registry
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// Detector returns the detector tracking series, if any
func (m *Monitor) Detector(series string) (*anomaly.Detector, bool) {
	return m.registry.Lookup(series)
}

// Start provisions the alert stream when the publisher supports it and
// subscribes to the observation subject.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pattern != "" {
		return fmt.Errorf("monitor already started")
	}

	if p, ok := m.publisher.(queue.StreamProvisioner); ok {
		if err := p.EnsureStream(m.cfg.AlertSubject, m.cfg.AlertSubject+".>"); err != nil {
			return fmt.Errorf("failed to provision alert stream: %w", err)
		}
	}

	pattern := m.cfg.Subject
	if m.wildcard {
		pattern += ".>"
	}

	if err := m.subscriber.Subscribe(ctx, pattern, m.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}
	m.pattern = pattern

	m.logger.Info("Monitor started",
		"subject", pattern,
		"alert_subject", m.cfg.AlertSubject,
		"method", m.cfg.Method,
		"max_series", m.cfg.MaxSeries)
	return nil
}

// Stop unsubscribes from the observation subject
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pattern == "" {
		return nil
	}
	err := m.subscriber.Unsubscribe(m.pattern)
	m.pattern = ""
	m.logger.Info("Monitor stopped")
	return err
}

// handleMessage adapts Process to the subscriber callback. Malformed and
// rejected messages are acknowledged; only publish failures are retried.
func (m *Monitor) handleMessage(ctx context.Context, subject string, data []byte) error {
	_, err := m.Process(ctx, subject, data)
	if err != nil && !errors.Is(err, errRetry) {
		return nil
	}
	return err
}

var errRetry = errors.New("retry")

// Process decodes one observation message, runs batch and real-time
// detection for its series and publishes the resulting alerts.
//
// When publishing fails the alerts are kept and the message is retried;
// the redelivered message republishes them without touching the history.
func (m *Monitor) Process(ctx context.Context, subject string, data []byte) ([]Alert, error) {
	start := time.Now()

	key := messageKey(subject, data)
	if alerts, ok := m.takePending(key); ok {
		return m.republish(ctx, key, alerts)
	}

	msg, err := DecodeObservations(data)
	if err != nil {
		metrics.MonitorMessagesTotal.WithLabelValues(statusInvalid).Inc()
		m.logger.Warn("Dropping undecodable message", "subject", subject, "bytes", len(data), "error", err)
		return nil, err
	}

	series := msg.Series
	if series == "" {
		series = strings.TrimPrefix(subject, m.cfg.Subject+".")
		if series == subject {
			series = ""
		}
	}

	var detector *anomaly.Detector
	if series == "" {
		err = fmt.Errorf("message on %s names no series", subject)
	} else {
		detector, err = m.registry.Get(series)
	}
	if err != nil {
		metrics.MonitorMessagesTotal.WithLabelValues(statusDropped).Inc()
		m.logger.Warn("Dropping message", "subject", subject, "series", series, "error", err)
		return nil, err
	}

	log := m.logger.With("series", series)

	batch := detector.Detect(msg.Observations, m.cfg.Method)
	realtime := detector.DetectRealTime(msg.Observations)

	detectedAt := m.now().UTC()
	alerts := make([]Alert, 0, batch.Count+realtime.Count)
	for _, res := range []anomaly.Result{batch, realtime} {
		for _, a := range res.Anomalies {
			metrics.AnomaliesTotal.WithLabelValues(res.Method, string(a.Severity)).Inc()
			alerts = append(alerts, Alert{
				ID:         uuid.New().String(),
				Series:     series,
				Method:     res.Method,
				Anomaly:    a,
				DetectedAt: detectedAt,
			})
		}
	}

	if batch.Error != "" {
		log.Warn("Batch detection failed", "method", m.cfg.Method, "error", batch.Error)
	}

	if err := m.publish(ctx, series, alerts); err != nil {
		metrics.MonitorMessagesTotal.WithLabelValues(statusFailed).Inc()
		log.Error("Failed to publish alerts", "alerts", len(alerts), "error", err)
		m.storePending(key, alerts)
		return alerts, fmt.Errorf("%w: %v", errRetry, err)
	}

	metrics.MonitorMessagesTotal.WithLabelValues(statusOK).Inc()
	metrics.ObserveOperation(metrics.OpMonitor, string(batch.Status), start)

	log.Debug("Processed observations",
		"observations", len(msg.Observations),
		"batch_status", batch.Status,
		"realtime_status", realtime.Status,
		"alerts", len(alerts))
	return alerts, nil
}

// republish retries the publish of alerts held from an earlier delivery
func (m *Monitor) republish(ctx context.Context, key uuid.UUID, alerts []Alert) ([]Alert, error) {
	series := alerts[0].Series
	if err := m.publish(ctx, series, alerts); err != nil {
		metrics.MonitorMessagesTotal.WithLabelValues(statusFailed).Inc()
		m.logger.Error("Failed to republish alerts", "series", series, "alerts", len(alerts), "error", err)
		m.storePending(key, alerts)
		return alerts, fmt.Errorf("%w: %v", errRetry, err)
	}

	metrics.MonitorMessagesTotal.WithLabelValues(statusOK).Inc()
	m.logger.Debug("Republished alerts", "series", series, "alerts", len(alerts))
	return alerts, nil
}

// messageKey identifies a delivery by its subject and payload
func messageKey(subject string, data []byte) uuid.UUID {
	buf := make([]byte, 0, len(subject)+1+len(data))
	buf = append(buf, subject...)
	buf = append(buf, 0)
	buf = append(buf, data...)
	return uuid.NewSHA1(uuid.NameSpaceOID, buf)
}

func (m *Monitor) storePending(key uuid.UUID, alerts []Alert) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	if _, ok := m.pending[key]; !ok {
		if len(m.pendingOrder) >= maxPendingMessages {
			oldest := m.pendingOrder[0]
			m.pendingOrder = m.pendingOrder[1:]
			m.logger.Warn("Dropping unpublished alerts", "alerts", len(m.pending[oldest]))
			delete(m.pending, oldest)
		}
		m.pendingOrder = append(m.pendingOrder, key)
	}
	m.pending[key] = alerts
}

func (m *Monitor) takePending(key uuid.UUID) ([]Alert, bool) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	alerts, ok := m.pending[key]
	if !ok {
		return nil, false
	}
	delete(m.pending, key)
	for i, k := range m.pendingOrder {
		if k == key {
			m.pendingOrder = append(m.pendingOrder[:i], m.pendingOrder[i+1:]...)
			break
		}
	}
	return alerts, true
}

// PendingLen returns the number of messages waiting for an alert republish
func (m *Monitor) PendingLen() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

func (m *Monitor) publish(ctx context.Context, series string, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	subject := m.cfg.AlertSubject + "." + series
	batch := make([]queue.BatchMessage, 0, len(alerts))
	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal alert: %w", err)
		}
		batch = append(batch, queue.BatchMessage{Subject: subject, Data: data})
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	n, err := m.publisher.PublishBatch(ctx, batch)
	if n > 0 {
		metrics.AlertsPublished.WithLabelValues(alertStatusOK).Add(float64(n))
	}
	if failed := len(batch) - n; failed > 0 {
		metrics.AlertsPublished.WithLabelValues(alertStatusErr).Add(float64(failed))
		if err == nil {
			err = fmt.Errorf("%d of %d alerts not acknowledged", failed, len(batch))
		}
	}
	return err
}
