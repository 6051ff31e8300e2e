package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes blobs to a directory and serves them under a base URL, enough
// for single-node deployments and tests.
type Local struct {
	basePath string
	baseURL  string
}

func NewLocal(basePath, baseURL string) *Local {
	return &Local{basePath: basePath, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (l *Local) Upload(_ context.Context, key string, body io.Reader, size int64, _ string, onProgress ProgressFunc) (string, error) {
	target := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	file, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, newProgressReader(body, size, onProgress)); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("unable to store file: %v", err)
	}

	return fmt.Sprintf("%s/%s", l.baseURL, key), nil
}
