package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AssetStore keeps theme images in object storage.
type AssetStore interface {
	UploadAsset(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	DeleteAsset(ctx context.Context, objectName string) error
	EnsureBucketExists(ctx context.Context) error
}

type minioAssetStore struct {
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

// NewMinioAssetStore connects to a MinIO endpoint. Uploaded assets are served
// through presigned URLs valid for urlExpiry.
func NewMinioAssetStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, urlExpiry time.Duration) (AssetStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	if urlExpiry <= 0 {
		urlExpiry = 7 * 24 * time.Hour
	}
	return &minioAssetStore{client: client, bucket: bucket, urlExpiry: urlExpiry}, nil
}

func (m *minioAssetStore) UploadAsset(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}

	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", objectName, err)
	}
	return url.String(), nil
}

func (m *minioAssetStore) DeleteAsset(ctx context.Context, objectName string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
}

func (m *minioAssetStore) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
