package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// BreakerConfig configures the circuit breaker registry.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	Cooldown         string `mapstructure:"cooldown"`
}

// CooldownDuration returns the parsed cooldown. Call after Validate.
func (c BreakerConfig) CooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.Cooldown)
	return d
}

// QueueServiceConfig configures one service's queue. Zero fields fall
// back to the defaults at runtime.
type QueueServiceConfig struct {
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	MaxQueueSize  int    `mapstructure:"max_queue_size"`
	QueueTimeout  string `mapstructure:"queue_timeout"`
}

// QueueTimeoutDuration returns the parsed timeout. Call after Validate.
func (c QueueServiceConfig) QueueTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.QueueTimeout)
	return d
}

// QueueConfig configures the queue manager.
type QueueConfig struct {
	Defaults            QueueServiceConfig            `mapstructure:"defaults"`
	Overrides           map[string]QueueServiceConfig `mapstructure:"overrides"`
	HealthyDepthPercent float64                       `mapstructure:"healthy_depth_percent"`
}

// AlertsConfig configures alert delivery.
type AlertsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SentryDSN supports ${VAR} expansion.
	SentryDSN   string `mapstructure:"sentry_dsn"`
	Environment string `mapstructure:"environment"`
	Timeout     string `mapstructure:"timeout"`
}

// TimeoutDuration returns the parsed dispatch timeout. Call after Validate.
func (c AlertsConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// AdminConfig configures the operational HTTP server.
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
	// APIKeys and JWTSecret support ${VAR} expansion.
	APIKeys   []string `mapstructure:"api_keys"`
	JWTSecret string   `mapstructure:"jwt_secret"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full configuration tree.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Environment string        `mapstructure:"environment"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
	Queue       QueueConfig   `mapstructure:"queue"`
	Alerts      AlertsConfig  `mapstructure:"alerts"`
	Admin       AdminConfig   `mapstructure:"admin"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// Load reads configuration from the given file, or from config.yaml in
// ./config and the working directory when path is empty. Environment
// variables override file values (BACKSTOP_BREAKER_COOLDOWN overrides
// breaker.cooldown).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("service_name", "backstop")
	v.SetDefault("environment", EnvDev)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown", "30s")
	v.SetDefault("queue.defaults.max_concurrent", 5)
	v.SetDefault("queue.defaults.max_queue_size", 50)
	v.SetDefault("queue.defaults.queue_timeout", "30s")
	v.SetDefault("queue.healthy_depth_percent", 80)
	v.SetDefault("alerts.timeout", "10s")
	v.SetDefault("admin.addr", ":9090")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.sample_pct", 1.0)
	v.SetDefault("metrics.exporter", "prometheus")
	v.SetDefault("logging.level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BACKSTOP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.expandSecrets(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) expandSecrets() error {
	var err error
	if c.Alerts.SentryDSN, err = expandEnvStrict(c.Alerts.SentryDSN); err != nil {
		return err
	}
	if c.Admin.JWTSecret, err = expandEnvStrict(c.Admin.JWTSecret); err != nil {
		return err
	}
	for i, key := range c.Admin.APIKeys {
		if c.Admin.APIKeys[i], err = expandEnvStrict(key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration tree.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.Breaker, validation.By(validateBreaker)),
		validation.Field(&c.Queue, validation.By(validateQueue)),
		validation.Field(&c.Alerts, validation.By(validateAlerts)),
		validation.Field(&c.Tracing, validation.By(validateTracing)),
		validation.Field(&c.Metrics, validation.By(validateMetrics)),
		validation.Field(&c.Logging,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In("debug", "info", "warn", "error"),
					),
				)
			}),
		),
	)
}

func validateBreaker(value interface{}) error {
	bc, ok := value.(BreakerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&bc.Cooldown, validation.Required, validation.By(validateDuration)),
	)
}

func validateQueue(value interface{}) error {
	qc, ok := value.(QueueConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a QueueConfig")
	}
	if err := validateQueueService(qc.Defaults, true); err != nil {
		return err
	}
	for service, override := range qc.Overrides {
		if err := validateQueueService(override, false); err != nil {
			return validation.NewError("validation_invalid_override",
				"override for "+service+": "+err.Error())
		}
	}
	if qc.HealthyDepthPercent <= 0 || qc.HealthyDepthPercent > 100 {
		return validation.NewError("validation_invalid_depth",
			"healthy_depth_percent must be in (0, 100]")
	}
	return nil
}

func validateQueueService(sc QueueServiceConfig, required bool) error {
	if required && (sc.MaxConcurrent < 1 || sc.MaxQueueSize < 1 || sc.QueueTimeout == "") {
		return validation.NewError("validation_required_fields",
			"defaults need max_concurrent, max_queue_size and queue_timeout")
	}
	if sc.MaxConcurrent < 0 || sc.MaxQueueSize < 0 {
		return validation.NewError("validation_negative_limit", "limits cannot be negative")
	}
	if sc.QueueTimeout != "" {
		if err := validateDuration(sc.QueueTimeout); err != nil {
			return err
		}
	}
	return nil
}

func validateAlerts(value interface{}) error {
	ac, ok := value.(AlertsConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an AlertsConfig")
	}
	if ac.Enabled && ac.SentryDSN == "" {
		return validation.NewError("validation_missing_dsn",
			"alerts are enabled but sentry_dsn is empty")
	}
	return validation.ValidateStruct(&ac,
		validation.Field(&ac.Timeout, validation.Required, validation.By(validateDuration)),
	)
}

func validateTracing(value interface{}) error {
	tc, ok := value.(TracingConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TracingConfig")
	}
	if !tc.Enabled {
		return nil
	}
	return validation.ValidateStruct(&tc,
		validation.Field(&tc.Exporter,
			validation.Required,
			validation.In("otlp", "stdout", "none"),
		),
		validation.Field(&tc.SamplePct, validation.Min(0.0), validation.Max(1.0)),
	)
}

func validateMetrics(value interface{}) error {
	mc, ok := value.(MetricsConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
	}
	if !mc.Enabled {
		return nil
	}
	return validation.ValidateStruct(&mc,
		validation.Field(&mc.Exporter,
			validation.Required,
			validation.In("otlp", "prometheus", "stdout", "none"),
		),
	)
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration",
			"must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	return nil
}
