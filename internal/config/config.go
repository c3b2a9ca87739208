package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Profiles  ProfilesConfig  `mapstructure:"profiles"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort        int           `mapstructure:"http_port"` // HTTP server port
	GRPCPort        int           `mapstructure:"grpc_port"` // gRPC server port
	BodyLimit       int           `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EtcdConfig represents etcd configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "tsinsight")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "tsinsight-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// MonitorConfig configures the streaming anomaly monitor
type MonitorConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Method        string `mapstructure:"method"`         // Batch method run on each message before the real-time pass
	Subject       string `mapstructure:"subject"`        // Observation subject prefix; series name is appended
	AlertSubject  string `mapstructure:"alert_subject"`  // Alert subject prefix; series name is appended
	Compression   string `mapstructure:"compression"`    // none, snappy
	ConsumerGroup string `mapstructure:"consumer_group"` // Durable consumer / group name
	MaxSeries     int    `mapstructure:"max_series"`     // Upper bound on tracked series
}

// ProfilesConfig configures the analysis profile store
type ProfilesConfig struct {
	Backend  string        `mapstructure:"backend"` // memory, etcd
	Prefix   string        `mapstructure:"prefix"`  // etcd key prefix
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AnalyticsConfig holds the thresholds of the analytics core
type AnalyticsConfig struct {
	MaxObservations int                    `mapstructure:"max_observations"` // Per request
	Anomaly         AnomalyAnalyticConfig  `mapstructure:"anomaly"`
	Trend           TrendAnalyticConfig    `mapstructure:"trend"`
	Forecast        ForecastAnalyticConfig `mapstructure:"forecast"`
}

// AnomalyAnalyticConfig configures anomaly detection
type AnomalyAnalyticConfig struct {
	ZThreshold         float64 `mapstructure:"z_threshold"`
	CriticalZ          float64 `mapstructure:"critical_z"`
	HighZ              float64 `mapstructure:"high_z"`
	LowerPercentile    float64 `mapstructure:"lower_percentile"`
	UpperPercentile    float64 `mapstructure:"upper_percentile"`
	IQRMultiplier      float64 `mapstructure:"iqr_multiplier"`
	MinDataPoints      int     `mapstructure:"min_data_points"`
	HistoryCapacity    int     `mapstructure:"history_capacity"`
	RealTimeWindow     int     `mapstructure:"realtime_window"`
	RealTimeMinHistory int     `mapstructure:"realtime_min_history"`
	MaxScore           float64 `mapstructure:"max_score"`
}

// TrendAnalyticConfig configures trend analysis
type TrendAnalyticConfig struct {
	IncreasingThreshold float64 `mapstructure:"increasing_threshold"`
	DecreasingThreshold float64 `mapstructure:"decreasing_threshold"`
	SeasonalPeriod      int     `mapstructure:"seasonal_period"`
	MaxLag              int     `mapstructure:"max_lag"`
	MinCycleStrength    float64 `mapstructure:"min_cycle_strength"`
}

// ForecastAnalyticConfig configures forecasting
type ForecastAnalyticConfig struct {
	Window                         int     `mapstructure:"window"`
	Alpha                          float64 `mapstructure:"alpha"`
	TrendConfidence                float64 `mapstructure:"trend_confidence"` // 0 derives confidence from R²
	MovingAverageConfidence        float64 `mapstructure:"moving_average_confidence"`
	ExponentialSmoothingConfidence float64 `mapstructure:"exponential_smoothing_confidence"`
	MaxPeriods                     int     `mapstructure:"max_periods"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Profiles.Validate(); err != nil {
		return fmt.Errorf("profiles config: %w", err)
	}

	if c.Profiles.Backend == "etcd" {
		if err := c.Etcd.Validate(); err != nil {
			return fmt.Errorf("etcd config: %w", err)
		}
	}

	if c.Monitor.Enabled {
		if err := c.Monitor.Validate(); err != nil {
			return fmt.Errorf("monitor config: %w", err)
		}
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc_port: %d", c.GRPCPort)
	}

	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("http_port and grpc_port cannot be the same")
	}

	return nil
}

// Validate validates etcd configuration
func (c *EtcdConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("etcd.endpoints is required")
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("etcd.dial_timeout must be positive")
	}

	return nil
}

// Validate validates monitor configuration
func (c *MonitorConfig) Validate() error {
	if c.Subject == "" || c.AlertSubject == "" {
		return fmt.Errorf("monitor.subject and monitor.alert_subject are required")
	}

	if c.Subject == c.AlertSubject {
		return fmt.Errorf("monitor.subject and monitor.alert_subject cannot be the same")
	}

	switch c.Compression {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("monitor.compression must be 'none' or 'snappy'")
	}

	return nil
}

// Validate validates profile store configuration
func (c *ProfilesConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "etcd":
		if c.Prefix == "" {
			return fmt.Errorf("profiles.prefix is required for the etcd backend")
		}
	default:
		return fmt.Errorf("profiles.backend must be 'memory' or 'etcd'")
	}

	return nil
}

// Validate validates analytics thresholds
func (c *AnalyticsConfig) Validate() error {
	if c.MaxObservations < 1 {
		return fmt.Errorf("analytics.max_observations must be positive")
	}

	a := c.Anomaly
	if a.ZThreshold <= 0 {
		return fmt.Errorf("analytics.anomaly.z_threshold must be positive")
	}
	if a.LowerPercentile < 0 || a.UpperPercentile > 1 || a.LowerPercentile >= a.UpperPercentile {
		return fmt.Errorf("analytics.anomaly percentiles must satisfy 0 <= lower < upper <= 1")
	}
	if a.HistoryCapacity < 1 {
		return fmt.Errorf("analytics.anomaly.history_capacity must be positive")
	}

	t := c.Trend
	if t.DecreasingThreshold > t.IncreasingThreshold {
		return fmt.Errorf("analytics.trend.decreasing_threshold cannot exceed increasing_threshold")
	}

	f := c.Forecast
	if f.Alpha <= 0 || f.Alpha > 1 {
		return fmt.Errorf("analytics.forecast.alpha must be in (0, 1]")
	}
	if f.Window < 1 {
		return fmt.Errorf("analytics.forecast.window must be positive")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// HTTPAddress returns the HTTP listen address
func (c *ServerConfig) HTTPAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

// GRPCAddress returns the gRPC listen address
func (c *ServerConfig) GRPCAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GRPCPort))
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}
