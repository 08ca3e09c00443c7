package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/storenest/plugin-cli/pkg/config"
	"github.com/storenest/plugin-cli/pkg/observability"
	"github.com/storenest/plugin-cli/pkg/plugins"
)

// S3API is the subset of the S3 client used for publishing
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publication describes an uploaded artifact
type Publication struct {
	Bucket      string         `json:"bucket"`
	Key         string         `json:"key"`
	ChecksumKey string         `json:"checksum_key"`
	Digest      plugins.Digest `json:"sha256"`
	Size        int64          `json:"size"`
}

// S3Publisher uploads packaged plugins and their digests to S3
type S3Publisher struct {
	client S3API
	bucket string
	prefix string
	logger *logrus.Logger
	tracer trace.Tracer
}

// NewS3Publisher creates a publisher from configuration
func NewS3Publisher(ctx context.Context, cfg config.PublishConfig, logger *logrus.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required for publishing")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials for MinIO or explicit keys
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3PublisherWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3PublisherWithClient creates a publisher around an existing client
func NewS3PublisherWithClient(client S3API, bucket, prefix string, logger *logrus.Logger) *S3Publisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
		tracer: observability.Tracer(),
	}
}

// ObjectKey returns the key an artifact is stored under:
// {prefix}/{pluginCode}/{version}/{file name}
func (p *S3Publisher) ObjectKey(manifest *plugins.Manifest, artifact *plugins.Artifact) string {
	return path.Join(p.prefix, manifest.PluginCode, manifest.Version, filepath.Base(artifact.Path))
}

// Publish uploads the artifact and a sha256sum-style sidecar next to it
func (p *S3Publisher) Publish(ctx context.Context, manifest *plugins.Manifest, artifact *plugins.Artifact) (*Publication, error) {
	key := p.ObjectKey(manifest, artifact)

	ctx, span := p.tracer.Start(ctx, "S3.Publish",
		trace.WithAttributes(
			attribute.String("s3.bucket", p.bucket),
			attribute.String("s3.key", key),
			attribute.String("plugin.sha256", artifact.Digest.String()),
		),
	)
	defer span.End()

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read artifact")
		return nil, fmt.Errorf("%w: %v", plugins.ErrFileAccess, err)
	}

	// The digest was taken at packaging time; refuse to publish a file that changed since
	if digest := plugins.HashBytes(data); digest != artifact.Digest {
		err := fmt.Errorf("artifact %s changed after packaging: sha256 %s, expected %s", artifact.Path, digest, artifact.Digest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "checksum mismatch")
		return nil, err
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
		Metadata: map[string]string{
			"checksum-sha256": artifact.Digest.String(),
			"plugin-code":     manifest.PluginCode,
			"plugin-version":  manifest.Version,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload artifact")
		return nil, fmt.Errorf("failed to upload to s3: %w", err)
	}

	checksumKey := key + ".sha256"
	sidecar := fmt.Sprintf("%s  %s\n", artifact.Digest, filepath.Base(artifact.Path))
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(checksumKey),
		Body:        bytes.NewReader([]byte(sidecar)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload checksum")
		return nil, fmt.Errorf("failed to upload checksum to s3: %w", err)
	}

	span.SetStatus(codes.Ok, "artifact published")
	p.logger.Infof("Published %s to s3://%s/%s", filepath.Base(artifact.Path), p.bucket, key)

	return &Publication{
		Bucket:      p.bucket,
		Key:         key,
		ChecksumKey: checksumKey,
		Digest:      artifact.Digest,
		Size:        int64(len(data)),
	}, nil
}
