package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/easybuy/backend/internal/config"
)

// S3Storage works against AWS S3 and S3-compatible stores (MinIO, R2,
// Spaces) through an optional endpoint override.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	if cfg.S3_BUCKET == "" {
		return nil, fmt.Errorf("storage: S3_BUCKET is not configured")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.S3_REGION),
	}
	if cfg.S3_KEY != "" && cfg.S3_SECRET != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3_KEY, cfg.S3_SECRET, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.S3_ENDPOINT != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3_ENDPOINT)
			o.UsePathStyle = true
		})
	}

	baseURL := strings.TrimRight(cfg.S3_URL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3_BUCKET, cfg.S3_REGION)
	}

	return &S3Storage{
		client:  s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:  cfg.S3_BUCKET,
		baseURL: baseURL,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, folder, filename string, r io.Reader) (Object, error) {
	key := folder + "/" + uuid.NewString() + path.Ext(filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: put %s: %w", key, err)
	}

	return Object{Key: key, URL: s.baseURL + "/" + key}, nil
}

func (s *S3Storage) Destroy(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}
