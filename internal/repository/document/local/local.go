package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document"
)

// FileRepository serves a bucket from a directory tree. Keys map onto
// slash-separated paths below root.
type FileRepository struct {
	root   string
	bucket string
}

func NewLocalRepository(root, bucket string) (*FileRepository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root %s: %w", abs, err)
	}
	return &FileRepository{root: abs, bucket: bucket}, nil
}

func (r *FileRepository) Bucket() string {
	return r.bucket
}

func (r *FileRepository) path(key string) (string, error) {
	if err := document.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(key)), nil
}

func (r *FileRepository) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var objects []domain.ObjectInfo

	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, domain.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
	}

	return objects, nil
}

func (r *FileRepository) Exists(_ context.Context, key string) (bool, error) {
	p, err := r.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
}

func (r *FileRepository) Download(_ context.Context, key, localPath string) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	src, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", document.ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer src.Close()

	dst, err := document.CreateLocal(localPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %s: %w", key, err)
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

// Put writes through a temp file and renames it into place so readers never
// observe a partial object.
func (r *FileRepository) Put(_ context.Context, key string, data io.Reader, _ int64, _ string) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}

func (r *FileRepository) Delete(_ context.Context, key string) error {
	p, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a file URL carrying the expiry as a query parameter.
// Nothing enforces it; the driver is meant for development.
func (r *FileRepository) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	p, err := r.path(key)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(p),
		RawQuery: url.Values{"expires": {strconv.FormatInt(time.Now().Add(expiry).Unix(), 10)}}.Encode(),
	}
	return u.String(), nil
}
