// Package blob is the binary media capability: validated uploads mapped to a
// public URL, with optional progress reporting.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ProgressFunc func(transferred, total int64)

type Uploader interface {
	// Upload stores the blob under key and returns its public URL.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error)
}

const (
	MaxImageSize = 10 << 20
	MaxVideoSize = 100 << 20
)

var (
	imageTypes = []string{"image/jpeg", "image/png", "image/gif"}
	videoTypes = []string{"video/mp4", "video/webm", "video/ogg"}
)

func IsVideoType(contentType string) bool {
	return lo.Contains(videoTypes, contentType)
}

// ValidateMedia rejects disallowed content types and oversized files before
// any remote call is made.
func ValidateMedia(contentType string, size int64) error {
	switch {
	case lo.Contains(imageTypes, contentType):
		if size > MaxImageSize {
			return fmt.Errorf("file too large, images are limited to %d MB", MaxImageSize>>20)
		}
	case lo.Contains(videoTypes, contentType):
		if size > MaxVideoSize {
			return fmt.Errorf("file too large, videos are limited to %d MB", MaxVideoSize>>20)
		}
	default:
		return fmt.Errorf("unsupported media type %s", contentType)
	}
	return nil
}

// DestinationKey builds the storage key for an upload, namespaced by kind and
// prefixed with a fresh id so names never collide.
func DestinationKey(filename string, video bool) string {
	prefix := lo.Ternary(video, "videos", "images")
	return fmt.Sprintf("%s/%s_%s", prefix, uuid.NewString(), filename)
}

// progressReader reports cumulative bytes read to the progress callback.
type progressReader struct {
	inner       io.Reader
	total       int64
	transferred int64
	onProgress  ProgressFunc
}

func newProgressReader(inner io.Reader, total int64, onProgress ProgressFunc) io.Reader {
	if onProgress == nil {
		return inner
	}
	return &progressReader{inner: inner, total: total, onProgress: onProgress}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.transferred += int64(n)
		r.onProgress(r.transferred, r.total)
	}
	return n, err
}
