package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type FileRepository struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewMinIORepository(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	repo := &FileRepository{
		client:  client,
		bucket:  cfg.Storage.Bucket,
		retries: retries,
		logger:  logger,
	}

	if err := repo.ensureBucket(context.Background(), cfg.Storage.Region); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context, region string) error {
	var exists bool
	err := retry.Do(func() error {
		var err error
		exists, err = r.client.BucketExists(ctx, r.bucket)
		return err
	}, r.retries)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", r.bucket, err)
	}
	if exists {
		return nil
	}

	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", r.bucket, err)
	}
	r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
	return nil
}

func (r *FileRepository) Bucket() string {
	return r.bucket
}

func (r *FileRepository) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var objects []domain.ObjectInfo

	err := retry.Do(func() error {
		objects = objects[:0]
		for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				return obj.Err
			}
			objects = append(objects, domain.ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		return nil
	}, r.retries)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
	}

	return objects, nil
}

func (r *FileRepository) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool

	err := retry.Do(func() error {
		_, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
		if err == nil {
			exists = true
			return nil
		}
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) && minioErr.StatusCode == http.StatusNotFound {
			exists = false
			return nil
		}
		return err
	}, r.retries)
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return exists, nil
}

func (r *FileRepository) Download(ctx context.Context, key, localPath string) error {
	if err := r.client.FGetObject(ctx, r.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", document.ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Upload(ctx context.Context, localPath, key, contentType string) error {
	_, err := r.client.FPutObject(ctx, r.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	_, err := r.client.PutObject(ctx, r.bucket, key, data, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := r.client.PresignedGetObject(ctx, r.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}
