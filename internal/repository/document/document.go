package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateKey rejects keys that could escape the bucket namespace.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// CreateLocal opens localPath for writing, creating parent directories.
func CreateLocal(localPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local dir: %w", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file: %w", err)
	}
	return f, nil
}
