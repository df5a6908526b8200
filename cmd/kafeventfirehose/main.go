package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jittakal/kafeventfirehose/internal/codec"
	"github.com/jittakal/kafeventfirehose/internal/config"
	"github.com/jittakal/kafeventfirehose/internal/config/dto"
	"github.com/jittakal/kafeventfirehose/internal/firehose"
	"github.com/jittakal/kafeventfirehose/internal/input"
	"github.com/jittakal/kafeventfirehose/internal/kafka"
	"github.com/jittakal/kafeventfirehose/internal/observability"
	"github.com/jittakal/kafeventfirehose/internal/output"
	"github.com/jittakal/kafeventfirehose/internal/server"
	"github.com/jittakal/kafeventfirehose/pkg/source"
)

const defaultConfigPath = "config/application.yaml"

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("kafeventfirehose", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Priority: CLI flag > CONFIG_PATH env var > default path
	cfgPath, _ := fs.GetString(config.FlagConfig)
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	loader := config.NewLoader()
	if err := loader.BindFlags(fs); err != nil {
		return err
	}
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
	defer func() { _ = logger.Sync() }()

	logger.Info("starting kafka event firehose",
		zap.String("version", cfg.Application.Version),
		zap.String("environment", cfg.Application.Environment),
		zap.String("stream", cfg.Firehose.StreamName),
		zap.String("input", cfg.Input.Type),
		zap.String("codec", cfg.Codec.Name),
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := firehose.NewAWSClient(ctx, firehose.AWSConfig{
		Region:          cfg.Firehose.Region,
		Endpoint:        cfg.Firehose.Endpoint,
		Profile:         cfg.Firehose.Profile,
		AccessKeyID:     cfg.Firehose.AccessKeyID,
		SecretAccessKey: cfg.Firehose.SecretAccessKey,
		SessionToken:    cfg.Firehose.SessionToken,
		HTTPTimeout:     cfg.Firehose.HTTPTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create firehose client: %w", err)
	}

	stream := cfg.Firehose.StreamName
	if cfg.Firehose.CheckStreamOnStart {
		if err := client.Ready(ctx, stream); err != nil {
			return fmt.Errorf("delivery stream check failed: %w", err)
		}
	}

	c, err := codec.NewFactory(cfg.Codec.Name, cfg.Codec.Format, cfg.Codec.Source).CreateCodec()
	if err != nil {
		return fmt.Errorf("failed to create codec: %w", err)
	}

	out, err := output.New(output.Config{StreamName: stream}, client, c, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to register output: %w", err)
	}

	src, err := newSource(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create %s input: %w", cfg.Input.Type, err)
	}

	checker := newChecker(client, out)

	httpServer := server.NewServer(server.Config{
		HealthPort:     cfg.Observability.Health.Port,
		LivenessPath:   cfg.Observability.Health.LivenessPath,
		ReadinessPath:  cfg.Observability.Health.ReadinessPath,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPort:    cfg.Observability.Metrics.Port,
		MetricsPath:    cfg.Observability.Metrics.Path,
	}, checker, registry, logger)

	// The HTTP server outlives the source so that probes keep answering
	// while buffered records are flushed.
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Run(serverCtx, cfg.Shutdown.GracePeriod())
	})
	g.Go(func() error {
		defer stopServer()

		runErr := src.Run(gctx, out)
		if runErr != nil {
			logger.Error("input stopped with error", zap.Error(runErr))
		}

		logger.Info("initiating graceful shutdown", zap.String("stream", out.Stream()))
		checker.MarkStopping()

		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.GracePeriod())
		defer cancel()

		return errors.Join(runErr, out.Close(closeCtx), src.Close())
	})

	logger.Info("application started successfully")

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("application stopped successfully")
	return nil
}

// streamChecker reports whether a delivery stream accepts records.
type streamChecker interface {
	Ready(ctx context.Context, stream string) error
}

// newChecker builds the readiness checker for the output's stream.
func newChecker(client streamChecker, out *output.Output) *server.Checker {
	checker := server.NewChecker()
	checker.AddProbe("firehose", func(ctx context.Context) error {
		return client.Ready(ctx, out.Stream())
	})
	return checker
}

// newSource builds the configured event source.
func newSource(cfg *dto.ApplicationConfig, logger *zap.Logger, metrics *observability.Metrics) (source.Source, error) {
	batch := cfg.Input.Batch

	switch cfg.Input.Type {
	case config.InputKafka:
		k := cfg.Input.Kafka
		consumer, err := kafka.NewSaramaConsumer(kafka.ConsumerConfig{
			BootstrapServers:      k.BootstrapServers,
			GroupID:               k.Consumer.GroupID,
			Topics:                k.Consumer.Topics,
			SecurityProtocol:      k.SecurityProtocol,
			SASLMechanism:         k.SASLMechanism,
			SASLUsername:          k.SASLUsername,
			SASLPassword:          k.SASLPassword,
			AWSRegion:             k.AWSRegion,
			TLSInsecureSkipVerify: k.TLSInsecureSkipVerify,
			AutoOffsetReset:       k.Consumer.AutoOffsetReset,
			MaxPollIntervalMS:     k.Consumer.MaxPollIntervalMS,
			SessionTimeoutMS:      k.Consumer.SessionTimeoutMS,
			HeartbeatIntervalMS:   k.Consumer.HeartbeatIntervalMS,
			MaxBatchEvents:        batch.MaxEvents,
			FlushInterval:         batch.FlushInterval(),
		}, logger, metrics)
		if err != nil {
			return nil, err
		}
		return consumer, nil
	case config.InputLine:
		lines, err := input.NewLineSource(input.LineConfig{
			Path: cfg.Input.Line.Path,
			JSON: cfg.Input.Line.JSON,
			Batch: input.BatchConfig{
				MaxEvents:     batch.MaxEvents,
				FlushInterval: batch.FlushInterval(),
			},
		}, logger)
		if err != nil {
			return nil, err
		}
		return lines, nil
	case config.InputGenerator:
		return input.NewGeneratorSource(input.GeneratorConfig{
			Count:    cfg.Input.Generator.Count,
			Interval: cfg.Input.Generator.Interval(),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", cfg.Input.Type)
	}
}
