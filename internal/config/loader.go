package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys to env names, e.g. TSINSIGHT_SERVER_HTTP_PORT
var envKeyReplacer = strings.NewReplacer(".", "_")

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")              // Current directory
		v.AddConfigPath("./configs")      // Project configs directory
		v.AddConfigPath("./config")       // Alternative config directory
		v.AddConfigPath("/etc/tsinsight") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("TSINSIGHT")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_keys", []string{})

	// Logging defaults
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)

	// Etcd defaults
	v.SetDefault("etcd.endpoints", d.Etcd.Endpoints)
	v.SetDefault("etcd.dial_timeout", d.Etcd.DialTimeout.String())

	// Queue defaults
	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)

	// Monitor defaults
	v.SetDefault("monitor.enabled", d.Monitor.Enabled)
	v.SetDefault("monitor.method", d.Monitor.Method)
	v.SetDefault("monitor.subject", d.Monitor.Subject)
	v.SetDefault("monitor.alert_subject", d.Monitor.AlertSubject)
	v.SetDefault("monitor.compression", d.Monitor.Compression)
	v.SetDefault("monitor.consumer_group", d.Monitor.ConsumerGroup)
	v.SetDefault("monitor.max_series", d.Monitor.MaxSeries)

	// Profile store defaults
	v.SetDefault("profiles.backend", d.Profiles.Backend)
	v.SetDefault("profiles.prefix", d.Profiles.Prefix)
	v.SetDefault("profiles.cache_ttl", d.Profiles.CacheTTL.String())

	// Analytics defaults
	a := d.Analytics
	v.SetDefault("analytics.max_observations", a.MaxObservations)
	v.SetDefault("analytics.anomaly.z_threshold", a.Anomaly.ZThreshold)
	v.SetDefault("analytics.anomaly.critical_z", a.Anomaly.CriticalZ)
	v.SetDefault("analytics.anomaly.high_z", a.Anomaly.HighZ)
	v.SetDefault("analytics.anomaly.lower_percentile", a.Anomaly.LowerPercentile)
	v.SetDefault("analytics.anomaly.upper_percentile", a.Anomaly.UpperPercentile)
	v.SetDefault("analytics.anomaly.iqr_multiplier", a.Anomaly.IQRMultiplier)
	v.SetDefault("analytics.anomaly.min_data_points", a.Anomaly.MinDataPoints)
	v.SetDefault("analytics.anomaly.history_capacity", a.Anomaly.HistoryCapacity)
	v.SetDefault("analytics.anomaly.realtime_window", a.Anomaly.RealTimeWindow)
	v.SetDefault("analytics.anomaly.realtime_min_history", a.Anomaly.RealTimeMinHistory)
	v.SetDefault("analytics.anomaly.max_score", a.Anomaly.MaxScore)
	v.SetDefault("analytics.trend.increasing_threshold", a.Trend.IncreasingThreshold)
	v.SetDefault("analytics.trend.decreasing_threshold", a.Trend.DecreasingThreshold)
	v.SetDefault("analytics.trend.seasonal_period", a.Trend.SeasonalPeriod)
	v.SetDefault("analytics.trend.max_lag", a.Trend.MaxLag)
	v.SetDefault("analytics.trend.min_cycle_strength", a.Trend.MinCycleStrength)
	v.SetDefault("analytics.forecast.window", a.Forecast.Window)
	v.SetDefault("analytics.forecast.alpha", a.Forecast.Alpha)
	v.SetDefault("analytics.forecast.trend_confidence", a.Forecast.TrendConfidence)
	v.SetDefault("analytics.forecast.moving_average_confidence", a.Forecast.MovingAverageConfidence)
	v.SetDefault("analytics.forecast.exponential_smoothing_confidence", a.Forecast.ExponentialSmoothingConfidence)
	v.SetDefault("analytics.forecast.max_periods", a.Forecast.MaxPeriods)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			HTTPPort:        5575,
			GRPCPort:        5576,
			BodyLimit:       4 * 1024 * 1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Etcd: EtcdConfig{
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Queue: QueueConfig{
			Type:         "nats",
			URL:          "nats://localhost:4222",
			RedisStream:  "tsinsight",
			RedisGroup:   "tsinsight-group",
			KafkaGroupID: "tsinsight-monitor",
		},
		Monitor: MonitorConfig{
			Enabled:       false,
			Method:        "statistical",
			Subject:       "insight.observations",
			AlertSubject:  "insight.alerts",
			Compression:   "snappy",
			ConsumerGroup: "tsinsight-monitor",
			MaxSeries:     10000,
		},
		Profiles: ProfilesConfig{
			Backend:  "memory",
			Prefix:   "/tsinsight/profiles/",
			CacheTTL: 30 * time.Second,
		},
		Analytics: AnalyticsConfig{
			MaxObservations: 100000,
			Anomaly: AnomalyAnalyticConfig{
				ZThreshold:         3.0,
				CriticalZ:          4.0,
				HighZ:              3.0,
				LowerPercentile:    0.05,
				UpperPercentile:    0.95,
				IQRMultiplier:      1.5,
				MinDataPoints:      3,
				HistoryCapacity:    10000,
				RealTimeWindow:     100,
				RealTimeMinHistory: 10,
				MaxScore:           1000,
			},
			Trend: TrendAnalyticConfig{
				IncreasingThreshold: 0.1,
				DecreasingThreshold: -0.1,
				SeasonalPeriod:      7,
				MaxLag:              50,
				MinCycleStrength:    0.3,
			},
			Forecast: ForecastAnalyticConfig{
				Window:                         7,
				Alpha:                          0.3,
				TrendConfidence:                0,
				MovingAverageConfidence:        0.7,
				ExponentialSmoothingConfidence: 0.75,
				MaxPeriods:                     1000,
			},
		},
	}
}
