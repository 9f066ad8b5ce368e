// Package blobs wraps the uploaded-asset storage backend: naming, URL
// resolution and cleanup that the upload handlers share.
package blobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage path prefixes. Banner files live below the media directory so a
// single static route serves both.
const (
	MediaDir  = "media"
	BannerDir = "media/banner-media"
)

// Store is the subset of storage.Store the handlers use.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// UniqueName builds "<prefix>-<unix millis>-<8 hex>" plus the lowercased
// extension of original.
func UniqueName(prefix, original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s-%d-%s%s", prefix, now.UnixMilli(), uuid.New().String()[:8], ext)
}

// StoragePath joins a directory and a file name into a storage key.
func StoragePath(dir, name string) string {
	return path.Join(dir, name)
}

// Put stores r under key with the given content type.
func Put(ctx context.Context, s Store, key string, r io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.Put(ctx, key, r, &storage.PutOptions{ContentType: contentType})
}

// AbsoluteURL makes a storage URL absolute. Absolute URLs pass through.
// Relative ones are joined to base when set, otherwise to the request's
// scheme and host.
func AbsoluteURL(r *http.Request, base, u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	if base != "" {
		return strings.TrimRight(base, "/") + u
	}
	if r == nil {
		return u
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.TrimSpace(strings.Split(p, ",")[0])
	}
	return scheme + "://" + r.Host + u
}

// DeleteBestEffort removes key and logs a failure instead of returning it.
// An empty key is ignored.
func DeleteBestEffort(ctx context.Context, s Store, key string, logger *zap.Logger) {
	if key == "" {
		return
	}
	if err := s.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete stored file",
			zap.String("path", key),
			zap.Error(err))
	}
}
