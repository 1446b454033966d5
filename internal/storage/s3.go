package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/config"
)

// s3Archive implements AudioArchive using an S3-compatible backend.
type s3Archive struct {
	client        *s3.Client
	presignClient *s3.PresignClient // For GET URLs on archived clips
	bucketName    string
	logger        *zap.Logger
}

// NewS3Archive creates the archive. Custom endpoints (MinIO, Spaces) use path-style addressing.
func NewS3Archive(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (AudioArchive, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Load AWS SDK config; static keys win over the default credential chain
	opts := []func(*awsCfg.LoadOptions) error{awsCfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	// Create S3 client
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required by MinIO
		}
	})

	logger.Info("S3 audio archive initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.BucketName))

	return &s3Archive{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		logger:        logger,
	}, nil
}

// AudioObjectKey builds a unique key for a clip uploaded in session.
func AudioObjectKey(prefix, sessionID, filename string) string {
	ext := path.Ext(filename) // Includes the leading dot
	if sessionID == "" {
		sessionID = "anonymous"
	}
	return path.Join(prefix, sessionID, time.Now().UTC().Format("20060102T150405")+"-"+uuid.NewString()+ext)
}

// Put uploads the clip. A negative size leaves ContentLength unset.
func (s *s3Archive) Put(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("Failed to archive audio", zap.String("key", objectKey), zap.Error(err))
		return err
	}
	return nil
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *s3Archive) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry // Fall back to the default lifetime
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.logger.Error("Failed to generate presigned GET URL", zap.String("key", objectKey), zap.Error(err))
		return "", err
	}
	return req.URL, nil
}

// DeleteObject removes an object from the S3 bucket.
func (s *s3Archive) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.logger.Error("Failed to delete object", zap.String("key", objectKey), zap.String("bucket", s.bucketName), zap.Error(err))
		return err
	}
	s.logger.Info("Deleted object", zap.String("key", objectKey), zap.String("bucket", s.bucketName))
	return nil
}
