// Package dto holds the configuration structures unmarshalled by the loader.
package dto

import "time"

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Firehose      FirehoseConfig      `mapstructure:"firehose"`
	Codec         CodecConfig         `mapstructure:"codec"`
	Input         InputConfig         `mapstructure:"input"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// FirehoseConfig contains the delivery stream and AWS connection settings
type FirehoseConfig struct {
	StreamName         string `mapstructure:"stream_name"`
	Region             string `mapstructure:"region"`
	Endpoint           string `mapstructure:"endpoint"`
	Profile            string `mapstructure:"profile"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	SessionToken       string `mapstructure:"session_token"`
	HTTPTimeoutSeconds int    `mapstructure:"http_timeout_seconds"`
	CheckStreamOnStart bool   `mapstructure:"check_stream_on_start"`
}

// HTTPTimeout returns the HTTP client timeout as a duration.
func (c FirehoseConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// CodecConfig selects how events are encoded into records
type CodecConfig struct {
	Name   string `mapstructure:"name"`
	Format string `mapstructure:"format"`
	Source string `mapstructure:"source"`
}

// InputConfig selects and configures the event source
type InputConfig struct {
	Type      string          `mapstructure:"type"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Line      LineConfig      `mapstructure:"line"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

// KafkaConfig contains Kafka-related configuration
type KafkaConfig struct {
	BootstrapServers      []string       `mapstructure:"bootstrap_servers"`
	SecurityProtocol      string         `mapstructure:"security_protocol"`
	SASLMechanism         string         `mapstructure:"sasl_mechanism"`
	SASLUsername          string         `mapstructure:"sasl_username"`
	SASLPassword          string         `mapstructure:"sasl_password"`
	AWSRegion             string         `mapstructure:"aws_region"`
	TLSInsecureSkipVerify bool           `mapstructure:"tls_insecure_skip_verify"`
	Consumer              ConsumerConfig `mapstructure:"consumer"`
}

// ConsumerConfig contains Kafka consumer configuration
type ConsumerConfig struct {
	GroupID             string   `mapstructure:"group_id"`
	Topics              []string `mapstructure:"topics"`
	AutoOffsetReset     string   `mapstructure:"auto_offset_reset"`
	MaxPollIntervalMS   int      `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMS    int      `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMS int      `mapstructure:"heartbeat_interval_ms"`
}

// LineConfig contains line input settings
type LineConfig struct {
	Path string `mapstructure:"path"`
	JSON bool   `mapstructure:"json"`
}

// GeneratorConfig contains generator input settings
type GeneratorConfig struct {
	Count      int `mapstructure:"count"`
	IntervalMS int `mapstructure:"interval_ms"`
}

// Interval returns the delay between generated events.
func (c GeneratorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// BatchConfig bounds the micro-batches handed to the output
type BatchConfig struct {
	MaxEvents       int `mapstructure:"max_events"`
	FlushIntervalMS int `mapstructure:"flush_interval_ms"`
}

// FlushInterval returns the flush interval as a duration.
func (c BatchConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// GracePeriod returns the shutdown grace period as a duration.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}
