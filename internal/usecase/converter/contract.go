package converter

import "context"

type objectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key, localPath string) error
	Bucket() string
}

// Strategy turns one local input into <outDir>/<stem>.pdf and returns that path.
type Strategy interface {
	Name() string
	Convert(ctx context.Context, input, outDir string) (string, error)
}
