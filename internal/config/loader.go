// Package config loads application configuration from a YAML file,
// APP_-prefixed environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jittakal/kafeventfirehose/internal/codec"
	"github.com/jittakal/kafeventfirehose/internal/config/dto"
	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/internal/validator"
)

// Input types.
const (
	InputKafka     = "kafka"
	InputLine      = "line"
	InputGenerator = "generator"
)

// Flag names bound by BindFlags.
const (
	FlagConfig   = "config"
	FlagInput    = "input"
	FlagStream   = "stream"
	FlagLogLevel = "log-level"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	FlagInput:    "input.type",
	FlagStream:   "firehose.stream_name",
	FlagLogLevel: "observability.logging.level",
}

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// RegisterFlags adds the command-line flags understood by the loader to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConfig, "c", "", "path to the YAML configuration file")
	fs.String(FlagInput, "", "event source: kafka, line or generator")
	fs.String(FlagStream, "", "delivery stream name")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn or error")
}

// BindFlags makes flags that were set on the command line override file and
// environment values.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references in string values
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "kafeventfirehose")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Firehose defaults. Empty values are registered so that APP_FIREHOSE_*
	// variables are seen by Unmarshal.
	l.v.SetDefault("firehose.stream_name", "")
	l.v.SetDefault("firehose.region", "")
	l.v.SetDefault("firehose.endpoint", "")
	l.v.SetDefault("firehose.profile", "")
	l.v.SetDefault("firehose.access_key_id", "")
	l.v.SetDefault("firehose.secret_access_key", "")
	l.v.SetDefault("firehose.session_token", "")
	l.v.SetDefault("firehose.http_timeout_seconds", 30)
	l.v.SetDefault("firehose.check_stream_on_start", true)

	// Codec defaults
	l.v.SetDefault("codec.name", codec.DefaultName)
	l.v.SetDefault("codec.format", codec.DefaultLineFormat)

	// Input defaults
	l.v.SetDefault("input.type", InputKafka)
	l.v.SetDefault("input.kafka.bootstrap_servers", []string{})
	l.v.SetDefault("input.kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("input.kafka.sasl_mechanism", "")
	l.v.SetDefault("input.kafka.sasl_username", "")
	l.v.SetDefault("input.kafka.sasl_password", "")
	l.v.SetDefault("input.kafka.aws_region", "")
	l.v.SetDefault("input.kafka.consumer.group_id", "")
	l.v.SetDefault("input.kafka.consumer.topics", []string{})
	l.v.SetDefault("input.kafka.consumer.auto_offset_reset", "earliest")
	l.v.SetDefault("input.kafka.consumer.max_poll_interval_ms", 300000)
	l.v.SetDefault("input.kafka.consumer.session_timeout_ms", 30000)
	l.v.SetDefault("input.kafka.consumer.heartbeat_interval_ms", 10000)
	l.v.SetDefault("input.line.path", "-")
	l.v.SetDefault("input.generator.count", 100)
	l.v.SetDefault("input.generator.interval_ms", 100)
	l.v.SetDefault("input.batch.max_events", 500)
	l.v.SetDefault("input.batch.flush_interval_ms", 1000)

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")

	// Shutdown defaults
	l.v.SetDefault("shutdown.grace_period_seconds", 30)
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	// Firehose validation
	if err := validator.ValidateStreamName(config.Firehose.StreamName); err != nil {
		return err
	}
	if config.Firehose.Region == "" {
		return &apperrors.ConfigError{Field: "firehose.region", Reason: "required field is missing"}
	}

	// Codec validation
	if !isSupportedCodec(config.Codec.Name) {
		return &apperrors.ConfigError{Field: "codec.name", Reason: "unsupported codec", Err: apperrors.ErrUnknownCodec}
	}

	// Input validation
	switch config.Input.Type {
	case InputKafka:
		if len(config.Input.Kafka.BootstrapServers) == 0 {
			return &apperrors.ConfigError{Field: "input.kafka.bootstrap_servers", Reason: "required for kafka input"}
		}
		if config.Input.Kafka.Consumer.GroupID == "" {
			return &apperrors.ConfigError{Field: "input.kafka.consumer.group_id", Reason: "required for kafka input"}
		}
		if len(config.Input.Kafka.Consumer.Topics) == 0 {
			return &apperrors.ConfigError{Field: "input.kafka.consumer.topics", Reason: "required for kafka input"}
		}
	case InputLine:
	case InputGenerator:
		if config.Input.Generator.Count < 0 {
			return &apperrors.ConfigError{Field: "input.generator.count", Reason: "must not be negative"}
		}
	default:
		return &apperrors.ConfigError{Field: "input.type", Reason: fmt.Sprintf("unsupported input type: %s", config.Input.Type)}
	}

	if config.Input.Batch.MaxEvents < 1 {
		return &apperrors.ConfigError{Field: "input.batch.max_events", Reason: "must be at least 1"}
	}

	// Port validation
	if config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535 {
		return &apperrors.ConfigError{Field: "observability.metrics.port", Reason: fmt.Sprintf("invalid port: %d", config.Observability.Metrics.Port)}
	}
	if config.Observability.Health.Port < 1 || config.Observability.Health.Port > 65535 {
		return &apperrors.ConfigError{Field: "observability.health.port", Reason: fmt.Sprintf("invalid port: %d", config.Observability.Health.Port)}
	}

	return nil
}

func isSupportedCodec(name string) bool {
	for _, supported := range codec.SupportedCodecs() {
		if name == supported {
			return true
		}
	}
	return false
}
