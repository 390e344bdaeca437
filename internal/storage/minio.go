package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bootstrapTimeout = 10 * time.Second

// ImageStore keeps product and profile images in a MinIO bucket.
type ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	log     logger.Logger
}

func NewImageStore(cfg config.MinIOConfig, log logger.Logger) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	// Create the bucket if it doesn't exist
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		log.Warnf("Failed to check bucket %s existence: %v", cfg.Bucket, err)
	} else if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			log.Warnf("Failed to create bucket %s: %v", cfg.Bucket, err)
		} else {
			log.Infof("Created bucket: %s", cfg.Bucket)
		}
	}

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		base = client.EndpointURL().String()
	}
	return &ImageStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s/%s", base, cfg.Bucket),
		log:     log,
	}, nil
}

// Upload stores data under prefix/<uuid><ext> and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, prefix, filename, contentType string, data []byte) (string, error) {
	objectKey := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), strings.ToLower(filepath.Ext(filename)))

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}
	s.log.Debugf("Uploaded %s (%d bytes) to bucket %s", info.Key, info.Size, s.bucket)
	return s.baseURL + "/" + objectKey, nil
}

// Remove deletes the object behind url. URLs that do not point into the bucket are ignored.
func (s *ImageStore) Remove(ctx context.Context, url string) error {
	objectKey, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || objectKey == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectKey, err)
	}
	return nil
}
