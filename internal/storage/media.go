package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/config"
)

// MediaStore hands out presigned URLs for issue photo uploads and reads.
// A nil MediaStore means the media feature is disabled.
type MediaStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMediaStore connects to the object store and ensures the bucket exists.
// Returns nil without error when no endpoint is configured.
func NewMediaStore(ctx context.Context, cfg config.MinioConfig, logger *zap.Logger) (*MediaStore, error) {
	if cfg.Endpoint == "" {
		logger.Info("MINIO_ENDPOINT not provided; media uploads disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	logger.Info("connected to object storage", zap.String("bucket", cfg.Bucket))
	return &MediaStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Enabled reports whether media uploads are available.
func (m *MediaStore) Enabled() bool {
	return m != nil
}

// PresignUpload returns a fresh object key and a presigned PUT URL for it.
func (m *MediaStore) PresignUpload(ctx context.Context, fileName string, expiry time.Duration) (string, string, error) {
	if m == nil {
		return "", "", fmt.Errorf("media storage not configured")
	}
	key := fmt.Sprintf("issues/%s%s", uuid.NewString(), path.Ext(fileName))
	u, err := m.client.PresignedPutObject(ctx, m.bucket, key, expiry)
	if err != nil {
		return "", "", fmt.Errorf("presign upload: %w", err)
	}
	return key, u.String(), nil
}

// PresignDownload returns a presigned GET URL for an object key.
func (m *MediaStore) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m == nil {
		return "", fmt.Errorf("media storage not configured")
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u.String(), nil
}
