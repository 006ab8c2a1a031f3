package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document"

	"cloud.google.com/go/storage"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type FileRepository struct {
	client  *storage.Client
	bucket  *storage.BucketHandle
	name    string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewGCSRepository(ctx context.Context, cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	var opts []option.ClientOption
	if cfg.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Storage.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &FileRepository{
		client:  client,
		bucket:  client.Bucket(cfg.Storage.Bucket),
		name:    cfg.Storage.Bucket,
		retries: retries,
		logger:  logger,
	}, nil
}

func (r *FileRepository) Bucket() string {
	return r.name
}

func (r *FileRepository) Close() error {
	return r.client.Close()
}

func (r *FileRepository) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var objects []domain.ObjectInfo

	err := retry.Do(func() error {
		objects = objects[:0]
		it := r.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return err
			}
			objects = append(objects, domain.ObjectInfo{
				Key:          attrs.Name,
				Size:         attrs.Size,
				LastModified: attrs.Updated,
			})
		}
	}, r.retries)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
	}

	return objects, nil
}

func (r *FileRepository) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool

	err := retry.Do(func() error {
		_, err := r.bucket.Object(key).Attrs(ctx)
		switch {
		case err == nil:
			exists = true
			return nil
		case errors.Is(err, storage.ErrObjectNotExist):
			exists = false
			return nil
		default:
			return err
		}
	}, r.retries)
	if err != nil {
		return false, fmt.Errorf("failed to get attrs of %s: %w", key, err)
	}

	return exists, nil
}

func (r *FileRepository) Download(ctx context.Context, key, localPath string) error {
	reader, err := r.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", document.ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer reader.Close()

	f, err := document.CreateLocal(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

func (r *FileRepository) Upload(ctx context.Context, localPath, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	return r.Put(ctx, key, f, -1, contentType)
}

func (r *FileRepository) Put(ctx context.Context, key string, data io.Reader, _ int64, contentType string) error {
	w := r.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, key string) error {
	if err := r.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	signed, err := r.bucket.SignedURL(key, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return signed, nil
}
