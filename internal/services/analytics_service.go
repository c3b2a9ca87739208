package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/tsinsight/internal/analytics"
	"github.com/soltixdb/tsinsight/internal/analytics/anomaly"
	"github.com/soltixdb/tsinsight/internal/analytics/forecast"
	"github.com/soltixdb/tsinsight/internal/analytics/stats"
	"github.com/soltixdb/tsinsight/internal/analytics/trend"
	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/metrics"
	"github.com/soltixdb/tsinsight/internal/models"
	"github.com/soltixdb/tsinsight/internal/monitor"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// DefaultForecastPeriods is used when a forecast request names no periods
const DefaultForecastPeriods = 7

// AnalyticsService runs the analytics core on request data
type AnalyticsService struct {
	logger          *logging.Logger
	maxObservations int
	anomalyConfig   anomaly.Config
	trendConfig     trend.Config
	forecastConfig  forecast.Config
	profiles        profiles.Store
	registry        *monitor.Registry
}

// NewAnalyticsService creates a new AnalyticsService. A nil store disables
// profiles; a nil registry gets an unbounded one.
func NewAnalyticsService(
	logger *logging.Logger,
	cfg config.AnalyticsConfig,
	store profiles.Store,
	registry *monitor.Registry,
) *AnalyticsService {
	anomalyConfig := AnomalyConfig(cfg.Anomaly)
	if registry == nil {
		registry = monitor.NewRegistry(anomalyConfig, 0)
	}

	return &AnalyticsService{
		logger:          logger,
		maxObservations: cfg.MaxObservations,
		anomalyConfig:   anomalyConfig,
		trendConfig:     TrendConfig(cfg.Trend),
		forecastConfig:  ForecastConfig(cfg.Forecast),
		profiles:        store,
		registry:        registry,
	}
}

// Registry returns the detector registry shared with the monitor
func (s *AnalyticsService) Registry() *monitor.Registry {
	return s.registry
}

// Stats summarizes the distribution of the input values
func (s *AnalyticsService) Stats(ctx context.Context, req *models.StatsRequest) (*models.StatsResponse, error) {
	start := time.Now()

	series, err := req.Resolve(s.maxObservations)
	if err != nil {
		metrics.ObserveOperation(metrics.OpStats, "", start)
		return nil, inputError(err)
	}

	summary, ok := stats.Summarize(series.Values())
	if !ok {
		metrics.ObserveOperation(metrics.OpStats, string(analytics.StatusInsufficientData), start)
		return &models.StatsResponse{Status: analytics.StatusInsufficientData}, nil
	}

	metrics.ObserveOperation(metrics.OpStats, string(analytics.StatusOK), start)
	return &models.StatsResponse{Status: analytics.StatusOK, Summary: &summary}, nil
}

// Trend fits a linear trend and looks for weekly seasonality and cycles
func (s *AnalyticsService) Trend(ctx context.Context, req *models.TrendRequest) (*models.TrendResponse, error) {
	start := time.Now()

	series, err := req.Resolve(s.maxObservations)
	if err != nil {
		metrics.ObserveOperation(metrics.OpTrend, "", start)
		return nil, inputError(err)
	}

	cfg := s.trendConfig
	if req.Profile != "" {
		p, err := s.loadProfile(ctx, req.Profile)
		if err != nil {
			metrics.ObserveOperation(metrics.OpTrend, "", start)
			return nil, err
		}
		cfg = mergeTrend(cfg, p.Trend)
	}

	analyzer := trend.NewAnalyzer(cfg)
	values := series.Values()

	resp := &models.TrendResponse{
		Trend:       analyzer.FitLinearTrend(values),
		Seasonality: analyzer.DetectWeeklySeasonality(values),
		Cycle:       analyzer.DetectCycle(values),
		Profile:     req.Profile,
	}

	metrics.ObserveOperation(metrics.OpTrend, string(resp.Trend.Status), start)
	s.logger.Debug("Trend analyzed",
		"points", len(values),
		"direction", resp.Trend.Direction,
		"seasonal", resp.Seasonality.Detected,
		"cycle", resp.Cycle.Detected)
	return resp, nil
}

// Forecast projects future values with the requested method
func (s *AnalyticsService) Forecast(ctx context.Context, req *models.ForecastRequest) (*models.ForecastResponse, error) {
	start := time.Now()

	series, err := req.Resolve(s.maxObservations)
	if err != nil {
		metrics.ObserveOperation(metrics.OpForecast, "", start)
		return nil, inputError(err)
	}

	method := req.Method
	if method == "" {
		method = forecast.MethodTrend
	}
	if _, err := forecast.GetForecaster(method); err != nil {
		metrics.ObserveOperation(metrics.OpForecast, "", start)
		return nil, NewServiceErrorWithDetails(CodeInvalidMethod, err.Error(), map[string]interface{}{
			"available_methods": forecast.ListForecasters(),
		})
	}

	periods := req.Periods
	if periods == 0 {
		periods = DefaultForecastPeriods
	}

	cfg := s.forecastConfig
	if req.Profile != "" {
		p, err := s.loadProfile(ctx, req.Profile)
		if err != nil {
			metrics.ObserveOperation(metrics.OpForecast, "", start)
			return nil, err
		}
		cfg = mergeForecast(cfg, p.Forecast)
	}

	result, err := forecast.Forecast(series.Values(), periods, method, cfg)
	if err != nil {
		metrics.ObserveOperation(metrics.OpForecast, "", start)
		return nil, NewServiceError(CodeInvalidPeriods, err.Error())
	}

	metrics.ObserveOperation(metrics.OpForecast, string(result.Status), start)
	s.logger.Debug("Forecast completed",
		"method", method,
		"periods", periods,
		"points", len(series),
		"status", result.Status,
		"latency_ms", time.Since(start).Milliseconds())

	return &models.ForecastResponse{Result: result, Profile: req.Profile}, nil
}

// Detect runs batch anomaly detection. The anomalies land in the history of
// the named series, or of the default detector when no series is given.
//
// A profile runs on a transient detector built from the profile thresholds;
// its anomalies are then seeded into the target history.
func (s *AnalyticsService) Detect(ctx context.Context, req *models.DetectRequest) (*models.DetectResponse, error) {
	start := time.Now()

	series, err := req.Resolve(s.maxObservations)
	if err != nil {
		metrics.ObserveOperation(metrics.OpDetect, "", start)
		return nil, inputError(err)
	}

	method := req.Method
	if method == "" {
		method = anomaly.MethodStatistical
	}
	if _, err := anomaly.GetMethod(method); err != nil {
		metrics.ObserveOperation(metrics.OpDetect, "", start)
		return nil, NewServiceErrorWithDetails(CodeInvalidMethod, err.Error(), map[string]interface{}{
			"available_methods": anomaly.ListMethods(),
		})
	}

	target, err := s.detector(req.Series)
	if err != nil {
		metrics.ObserveOperation(metrics.OpDetect, "", start)
		return nil, err
	}

	var result anomaly.Result
	if req.Profile != "" {
		p, err := s.loadProfile(ctx, req.Profile)
		if err != nil {
			metrics.ObserveOperation(metrics.OpDetect, "", start)
			return nil, err
		}
		cfg := mergeAnomaly(s.anomalyConfig, p.Anomaly)
		result = anomaly.NewDetector(cfg).Detect(series, method)
		if result.Count > 0 {
			target.Seed(method, result.Anomalies)
		}
	} else {
		result = target.Detect(series, method)
	}

	countAnomalies(result)
	metrics.ObserveOperation(metrics.OpDetect, string(result.Status), start)

	if result.Status == analytics.StatusError {
		s.logger.Warn("Detection failed", "method", method, "series", req.Series, "error", result.Error)
	}

	return &models.DetectResponse{Result: result, Series: req.Series, Profile: req.Profile}, nil
}

// RealTime scores observations against the detection history of series
func (s *AnalyticsService) RealTime(ctx context.Context, series string, req *models.RealTimeRequest) (*models.DetectResponse, error) {
	start := time.Now()

	obs, err := req.Resolve(s.maxObservations)
	if err != nil {
		metrics.ObserveOperation(metrics.OpRealTime, "", start)
		return nil, inputError(err)
	}

	d, err := s.detector(series)
	if err != nil {
		metrics.ObserveOperation(metrics.OpRealTime, "", start)
		return nil, err
	}

	result := d.DetectRealTime(obs)
	countAnomalies(result)
	metrics.ObserveOperation(metrics.OpRealTime, string(result.Status), start)

	return &models.DetectResponse{Result: result, Series: series}, nil
}

// History returns up to limit most recent detection records of series.
// limit <= 0 uses utils.DefaultHistoryLimit; it is capped at MaxHistoryLimit.
func (s *AnalyticsService) History(ctx context.Context, series string, limit int) (*models.HistoryResponse, error) {
	start := time.Now()

	d, ok := s.registry.Lookup(series)
	if !ok {
		metrics.ObserveOperation(metrics.OpHistory, "", start)
		return nil, NewServiceError(CodeSeriesNotFound, fmt.Sprintf("series %s is not tracked", series))
	}

	if limit <= 0 {
		limit = utils.DefaultHistoryLimit
	}
	if limit > utils.MaxHistoryLimit {
		limit = utils.MaxHistoryLimit
	}

	records := d.History(limit)
	metrics.ObserveOperation(metrics.OpHistory, string(analytics.StatusOK), start)

	return &models.HistoryResponse{
		Series:  series,
		Records: records,
		Count:   len(records),
		Total:   d.HistoryLen(),
	}, nil
}

// ClearHistory drops the detection history of series
func (s *AnalyticsService) ClearHistory(ctx context.Context, series string) error {
	d, ok := s.registry.Lookup(series)
	if !ok {
		return NewServiceError(CodeSeriesNotFound, fmt.Sprintf("series %s is not tracked", series))
	}
	d.ClearHistory()
	s.logger.Info("Detection history cleared", "series", series)
	return nil
}

// Series lists the tracked series
func (s *AnalyticsService) Series() *models.SeriesListResponse {
	series := s.registry.Series()
	return &models.SeriesListResponse{Series: series, Count: len(series)}
}

// Methods lists the registered anomaly and forecast methods
func (s *AnalyticsService) Methods() *models.MethodsResponse {
	return &models.MethodsResponse{
		Anomaly:  anomaly.ListMethods(),
		Forecast: forecast.ListForecasters(),
	}
}

// detector resolves series to a detector, creating it on first use
func (s *AnalyticsService) detector(series string) (*anomaly.Detector, error) {
	d, err := s.registry.Get(series)
	if err == nil {
		return d, nil
	}
	if errors.Is(err, monitor.ErrSeriesLimit) {
		return nil, NewServiceError(CodeSeriesLimit, err.Error())
	}
	return nil, NewServiceError(CodeInvalidSeries, err.Error())
}

func (s *AnalyticsService) loadProfile(ctx context.Context, name string) (*profiles.Profile, error) {
	if s.profiles == nil {
		return nil, NewServiceError(CodeProfileNotFound, fmt.Sprintf("profile %s not found: profiles are disabled", name))
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ProfileStoreTimeout)
	defer cancel()

	p, err := s.profiles.Get(ctx, name)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return nil, NewServiceError(CodeProfileNotFound, fmt.Sprintf("profile %s not found", name))
		}
		s.logger.Error("Failed to load profile", "profile", name, "error", err)
		return nil, NewServiceErrorWithDetails(CodeProfileStore, "failed to load profile", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return p, nil
}

func countAnomalies(result anomaly.Result) {
	for _, a := range result.Anomalies {
		metrics.AnomaliesTotal.WithLabelValues(result.Method, string(a.Severity)).Inc()
	}
}
