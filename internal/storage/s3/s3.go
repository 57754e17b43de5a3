// Package s3 stores file content in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"scorelib/internal/domain"
)

type Config struct {
	// Endpoint overrides the AWS endpoint (MinIO, LocalStack). Empty uses AWS.
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// BaseURL prefixes returned locators. Defaults to the virtual-hosted AWS URL.
	BaseURL string
}

type Locator struct {
	client  *s3.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Locator, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", domain.ErrValidation)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	l := &Locator{client: client, bucket: cfg.Bucket, baseURL: baseURL, logger: logger}
	if err := l.ensureBucket(ctx); err != nil {
		logger.Error("bucket check failed", "bucket", cfg.Bucket, "error", err)
	}
	return l, nil
}

func (l *Locator) Type() string { return "s3" }

func (l *Locator) ensureBucket(ctx context.Context) error {
	_, err := l.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(l.bucket)})
	if err == nil {
		return nil
	}
	if _, createErr := l.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(l.bucket)}); createErr != nil {
		return fmt.Errorf("bucket %s does not exist and cannot create: %w", l.bucket, createErr)
	}
	l.logger.Info("created bucket", "bucket", l.bucket)
	return nil
}

func (l *Locator) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := l.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", path, err)
	}
	return l.baseURL + "/" + path, nil
}

func (l *Locator) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("content %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get object %s: %w", path, err)
	}
	return out.Body, nil
}

func (l *Locator) Delete(ctx context.Context, path string) error {
	if _, err := l.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(path),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", path, err)
	}
	return nil
}
