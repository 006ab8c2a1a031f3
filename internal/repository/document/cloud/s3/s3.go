package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type FileRepository struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewS3Repository(ctx context.Context, cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.Region)}
	if cfg.Storage.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := endpointURL(cfg.Storage.Endpoint, cfg.Storage.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug().Str("bucket", cfg.Storage.Bucket).Str("endpoint", endpoint).Msg("S3 client configured")

	return &FileRepository{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Storage.Bucket,
		retries: retries,
		logger:  logger,
	}, nil
}

// endpointURL turns a bare host:port into a URL. Empty means the AWS default endpoint.
func endpointURL(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func (r *FileRepository) Bucket() string {
	return r.bucket
}

func (r *FileRepository) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var objects []domain.ObjectInfo

	err := retry.Do(func() error {
		objects = objects[:0]
		paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(r.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, obj := range page.Contents {
				objects = append(objects, domain.ObjectInfo{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
				})
			}
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
		_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			exists = true
			return nil
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			exists = false
			return nil
		}
		return err
	}, r.retries)
	if err != nil {
		return false, fmt.Errorf("failed to head object %s: %w", key, err)
	}

	return exists, nil
}

func (r *FileRepository) Download(ctx context.Context, key, localPath string) error {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("%w: %s", document.ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := document.CreateLocal(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
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

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	return r.Put(ctx, key, f, info.Size(), contentType)
}

func (r *FileRepository) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *FileRepository) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}
