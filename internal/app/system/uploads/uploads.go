// Package uploads handles multipart media uploads: size ceilings, the
// image/video allow-list, and writing accepted files to blob storage.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/system/blobs"
)

// Defaults used when configuration leaves a limit unset.
const (
	DefaultMaxFileSize = 50 << 20
	DefaultMaxFiles    = 10

	// memory kept in RAM while parsing; the rest spills to temp files
	parseMemory = 32 << 20
	// allowance for multipart boundaries and plain form fields
	formOverhead = 1 << 20
)

var (
	// ErrNoFile is returned when the expected file field is missing.
	ErrNoFile = errors.New("no file uploaded")
	// ErrTooLarge is returned when a file or the request exceeds its ceiling.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidType is returned for a MIME type outside the allow-list.
	ErrInvalidType = errors.New("invalid file type. Only images and videos are allowed")
	// ErrTooManyFiles is returned when a request carries more files than allowed.
	ErrTooManyFiles = errors.New("too many files")
)

var allowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
var allowedVideoTypes = []string{"video/mp4", "video/avi", "video/mov", "video/wmv", "video/flv", "video/webm"}

// AllowedTypes returns every accepted MIME type.
func AllowedTypes() []string {
	out := make([]string, 0, len(allowedImageTypes)+len(allowedVideoTypes))
	out = append(out, allowedImageTypes...)
	return append(out, allowedVideoTypes...)
}

// IsAllowed reports whether contentType is on the allow-list.
// Parameters such as "; charset" are ignored.
func IsAllowed(contentType string) bool {
	ct := normalizeType(contentType)
	for _, t := range AllowedTypes() {
		if ct == t {
			return true
		}
	}
	return false
}

// Limits bounds one upload request.
type Limits struct {
	MaxFileSize int64
	MaxFiles    int
}

func (l Limits) fileSize() int64 {
	if l.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return l.MaxFileSize
}

func (l Limits) files() int {
	if l.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return l.MaxFiles
}

// ParseForm parses a multipart request whose body may carry up to
// maxFiles files of the configured size. An oversized body is ErrTooLarge.
func ParseForm(w http.ResponseWriter, r *http.Request, l Limits, maxFiles int) error {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, l.fileSize()*int64(maxFiles)+formOverhead)
	if err := r.ParseMultipartForm(parseMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return ErrTooLarge
		}
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// File returns the single file in field after checking it.
func File(r *http.Request, field string, l Limits) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, ErrNoFile
	}
	fh := r.MultipartForm.File[field][0]
	if err := Check(fh, l); err != nil {
		return nil, err
	}
	return fh, nil
}

// Files returns every file in field after checking each one and the count.
func Files(r *http.Request, field string, l Limits) ([]*multipart.FileHeader, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, ErrNoFile
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) > l.files() {
		return nil, fmt.Errorf("%w: at most %d per upload", ErrTooManyFiles, l.files())
	}
	for _, fh := range fhs {
		if err := Check(fh, l); err != nil {
			return nil, err
		}
	}
	return fhs, nil
}

// Check validates one file's size and declared content type.
func Check(fh *multipart.FileHeader, l Limits) error {
	if fh.Size > l.fileSize() {
		return fmt.Errorf("%w: maximum size is %s", ErrTooLarge, FormatFileSize(l.fileSize()))
	}
	if !IsAllowed(ContentType(fh)) {
		return ErrInvalidType
	}
	return nil
}

// ContentType returns the file's declared MIME type without parameters.
func ContentType(fh *multipart.FileHeader) string {
	return normalizeType(fh.Header.Get("Content-Type"))
}

// Saved describes a file written to storage.
type Saved struct {
	Filename     string
	OriginalName string
	StoragePath  string
	URL          string
	ContentType  string
	Size         int64
}

// Save writes fh to store under dir with a generated name.
func Save(ctx context.Context, store blobs.Store, dir, prefix string, fh *multipart.FileHeader, now time.Time) (Saved, error) {
	src, err := fh.Open()
	if err != nil {
		return Saved{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := blobs.UniqueName(prefix, fh.Filename, now)
	key := blobs.StoragePath(dir, name)
	ct := ContentType(fh)
	if err := blobs.Put(ctx, store, key, src, ct); err != nil {
		return Saved{}, fmt.Errorf("store upload: %w", err)
	}

	return Saved{
		Filename:     name,
		OriginalName: fh.Filename,
		StoragePath:  key,
		URL:          store.URL(key),
		ContentType:  ct,
		Size:         fh.Size,
	}, nil
}

// FormatFileSize formats a file size in bytes to a human-readable string.
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return trimZero(float64(bytes)/float64(GB)) + "GB"
	case bytes >= MB:
		return trimZero(float64(bytes)/float64(MB)) + "MB"
	case bytes >= KB:
		return trimZero(float64(bytes)/float64(KB)) + "KB"
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

func trimZero(f float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", f), ".0")
}

func normalizeType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
