// Package storage holds track bytes in MinIO. The ledger core only sees
// size and duration metadata; handlers use this client to hand out upload
// URLs, verify completion and clean up deleted tracks.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"orpheus/config"
	"orpheus/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO connected",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the shared client, or nil when not initialized.
func GetMinioClient() *minio.Client {
	return minioClient
}

// trackObjectName keys track bytes by track id.
func trackObjectName(trackID string) string {
	return fmt.Sprintf("tracks/%s", trackID)
}

// PresignTrackUpload returns a presigned PUT URL for a track's bytes.
func PresignTrackUpload(ctx context.Context, bucket, trackID string, expiry time.Duration) (*url.URL, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}
	u, err := minioClient.PresignedPutObject(ctx, bucket, trackObjectName(trackID), expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for track %s: %w", trackID, err)
	}
	return u, nil
}

// StatTrackObject returns the stored size of a track's bytes.
func StatTrackObject(ctx context.Context, bucket, trackID string) (int64, error) {
	if minioClient == nil {
		return 0, fmt.Errorf("MinIO client not initialized")
	}
	info, err := minioClient.StatObject(ctx, bucket, trackObjectName(trackID), minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object for track %s: %w", trackID, err)
	}
	return info.Size, nil
}

// RemoveTrackObject deletes a track's bytes.
func RemoveTrackObject(ctx context.Context, bucket, trackID string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	err := minioClient.RemoveObject(ctx, bucket, trackObjectName(trackID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object for track %s: %w", trackID, err)
	}
	return nil
}
