package firehose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// API is the subset of the Firehose service client used here.
type API interface {
	PutRecord(ctx context.Context, params *firehose.PutRecordInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordOutput, error)
	PutRecordBatch(ctx context.Context, params *firehose.PutRecordBatchInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordBatchOutput, error)
	DescribeDeliveryStream(ctx context.Context, params *firehose.DescribeDeliveryStreamInput, optFns ...func(*firehose.Options)) (*firehose.DescribeDeliveryStreamOutput, error)
}

// Ensure implementations satisfy interfaces at compile time.
var (
	_ API    = (*firehose.Client)(nil)
	_ Client = (*AWSClient)(nil)
)

// AWSConfig contains AWS connection settings for the delivery stream.
type AWSConfig struct {
	Region          string
	Endpoint        string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	HTTPTimeout     time.Duration
}

// AWSClient implements Client on top of the AWS SDK.
type AWSClient struct {
	api    API
	logger *zap.Logger
}

// NewAWSClient loads AWS configuration and builds a Firehose client.
func NewAWSClient(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Region == "" {
		return nil, &apperrors.ConfigError{Field: "firehose.region", Reason: "region is required"}
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	if cfg.HTTPTimeout > 0 {
		loadOpts = append(loadOpts, config.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(cfg.HTTPTimeout),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := firehose.NewFromConfig(awsCfg, func(o *firehose.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("firehose client created",
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("static_credentials", cfg.AccessKeyID != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
	)

	return NewAWSClientWithAPI(client, logger), nil
}

// NewAWSClientWithAPI wraps an existing API implementation.
func NewAWSClientWithAPI(api API, logger *zap.Logger) *AWSClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSClient{api: api, logger: logger}
}

// SubmitOne sends a single record with PutRecord.
func (c *AWSClient) SubmitOne(ctx context.Context, stream string, record event.Record) error {
	_, err := c.api.PutRecord(ctx, &firehose.PutRecordInput{
		DeliveryStreamName: aws.String(stream),
		Record:             &types.Record{Data: record},
	})
	if err != nil {
		return classify("PutRecord", stream, 1, err)
	}
	return nil
}

// SubmitMany sends records with PutRecordBatch. A response with a non-zero
// FailedPutCount is reported as a recoverable partial failure.
func (c *AWSClient) SubmitMany(ctx context.Context, stream string, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}

	entries := make([]types.Record, len(records))
	for i, r := range records {
		entries[i] = types.Record{Data: r}
	}

	out, err := c.api.PutRecordBatch(ctx, &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(stream),
		Records:            entries,
	})
	if err != nil {
		return classify("PutRecordBatch", stream, len(records), err)
	}

	if out != nil && aws.ToInt32(out.FailedPutCount) > 0 {
		return &apperrors.DeliveryError{
			Op:      "PutRecordBatch",
			Stream:  stream,
			Records: len(records),
			Err: fmt.Errorf("%w: %d of %d records failed (first error: %s)",
				apperrors.ErrPartialFailure,
				aws.ToInt32(out.FailedPutCount),
				len(records),
				firstEntryError(out.RequestResponses),
			),
		}
	}

	return nil
}

// Ready checks that the delivery stream exists and is accepting records.
func (c *AWSClient) Ready(ctx context.Context, stream string) error {
	out, err := c.api.DescribeDeliveryStream(ctx, &firehose.DescribeDeliveryStreamInput{
		DeliveryStreamName: aws.String(stream),
	})
	if err != nil {
		return classify("DescribeDeliveryStream", stream, 0, err)
	}

	if out.DeliveryStreamDescription != nil {
		status := out.DeliveryStreamDescription.DeliveryStreamStatus
		if status != types.DeliveryStreamStatusActive {
			return fmt.Errorf("delivery stream %s is %s", stream, status)
		}
	}
	return nil
}

// classify maps SDK errors onto the application error taxonomy.
func classify(op, stream string, records int, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return &apperrors.ConfigError{
			Field:  "firehose.stream_name",
			Reason: fmt.Sprintf("delivery stream %q does not exist", stream),
			Err:    fmt.Errorf("%s: %w: %s", op, apperrors.ErrStreamNotFound, notFound.ErrorMessage()),
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("%s (%s): %w", apiErr.ErrorCode(), apiErr.ErrorFault(), err)
	}

	return &apperrors.DeliveryError{
		Op:      op,
		Stream:  stream,
		Records: records,
		Err:     err,
	}
}

func firstEntryError(entries []types.PutRecordBatchResponseEntry) string {
	for _, e := range entries {
		if e.ErrorCode != nil {
			return fmt.Sprintf("%s: %s", aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
		}
	}
	return "unknown"
}
