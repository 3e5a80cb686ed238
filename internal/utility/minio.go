package utility

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures MinioStore.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MinioStore hosts assets in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(base, "/")}, nil
}

func (s *MinioStore) Upload(ctx context.Context, folder string, asset Asset) (*UploadResult, error) {
	key, publicID, format := NewObjectKey(folder, asset.Filename)
	body, err := asset.Open()
	if err != nil {
		return nil, err
	}
	defer body.Close()

	info, err := s.client.PutObject(ctx, s.bucket, key, body, asset.Size, minio.PutObjectOptions{
		ContentType: asset.DetectContentType(),
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	return &UploadResult{
		URL:      s.baseURL + "/" + key,
		PublicID: publicID,
		Format:   format,
		Size:     info.Size,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, url string) (string, error) {
	key, ok := ObjectKeyFromURL(url)
	if !ok {
		return DeleteNotFound, nil
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return DeleteNotFound, nil
		}
		return "", fmt.Errorf("stat %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return "", fmt.Errorf("remove %s: %w", key, err)
	}
	return DeleteOK, nil
}
