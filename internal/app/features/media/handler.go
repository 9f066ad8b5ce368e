// Package media serves the shared media library: single and batch uploads,
// the library listing, and deletion by generated filename.
package media

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	filestore "github.com/vicarhk/vicarapi/internal/app/store/file"
	"github.com/vicarhk/vicarapi/internal/app/system/auth"
	"github.com/vicarhk/vicarapi/internal/app/system/blobs"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"github.com/vicarhk/vicarapi/internal/app/system/uploads"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides media library handlers.
type Handler struct {
	store   *filestore.Store
	files   blobs.Store
	limits  uploads.Limits
	baseURL string
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a media Handler.
func NewHandler(store *filestore.Store, files blobs.Store, limits uploads.Limits, baseURL string, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		store:   store,
		files:   files,
		limits:  limits,
		baseURL: baseURL,
		errLog:  errLog,
		logger:  logger,
		now:     time.Now,
	}
}

// fileView is the JSON shape of one library entry.
type fileView struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimetype"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	UploadDate   time.Time `json:"uploadDate"`
}

func toView(f *models.MediaFile) fileView {
	return fileView{
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		MimeType:     f.ContentType,
		Type:         f.Kind,
		URL:          f.URL,
		UploadDate:   f.CreatedAt,
	}
}

// Upload handles POST /upload-media with a single "media" file.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := uploads.ParseForm(w, r, h.limits, 1); err != nil {
		h.writeUploadError(w, err, "No file uploaded")
		return
	}
	fh, err := uploads.File(r, "media", h.limits)
	if err != nil {
		h.writeUploadError(w, err, "No file uploaded")
		return
	}

	saved, err := h.saveAll(r, []*multipart.FileHeader{fh})
	if err != nil {
		h.writeSaveError(w, r, "Failed to upload file", err)
		return
	}

	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "File uploaded successfully",
		"file":    saved[0],
	})
}

// UploadMultiple handles POST /upload-multiple-media with up to
// MaxFiles "media" files. Either every file is stored or none is.
func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := uploads.ParseForm(w, r, h.limits, h.maxFiles()); err != nil {
		h.writeUploadError(w, err, "No files uploaded")
		return
	}
	fhs, err := uploads.Files(r, "media", h.limits)
	if err != nil {
		h.writeUploadError(w, err, "No files uploaded")
		return
	}

	saved, err := h.saveAll(r, fhs)
	if err != nil {
		h.writeSaveError(w, r, "Failed to upload files", err)
		return
	}

	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d files uploaded successfully", len(saved)),
		"files":   saved,
	})
}

// saveAll stores each file and records it in the library. On any failure
// the blobs and records written so far are removed.
func (h *Handler) saveAll(r *http.Request, fhs []*multipart.FileHeader) ([]fileView, error) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.logger, "save media")
	defer cancel()

	var createdBy *primitive.ObjectID
	if u, ok := auth.CurrentUser(r); ok {
		if id := u.UserID(); !id.IsZero() {
			createdBy = &id
		}
	}

	var done []*models.MediaFile
	rollback := func() {
		for _, f := range done {
			if _, err := h.store.DeleteByFilename(ctx, f.Filename); err != nil {
				h.logger.Warn("media rollback: record not removed",
					zap.String("filename", f.Filename), zap.Error(err))
			}
			blobs.DeleteBestEffort(ctx, h.files, f.StoragePath, h.logger)
		}
	}

	now := h.now()
	out := make([]fileView, 0, len(fhs))
	for _, fh := range fhs {
		saved, err := uploads.Save(ctx, h.files, blobs.MediaDir, "media", fh, now)
		if err != nil {
			rollback()
			return nil, err
		}
		rec, err := h.store.Create(ctx, filestore.CreateInput{
			Filename:     saved.Filename,
			OriginalName: saved.OriginalName,
			StoragePath:  saved.StoragePath,
			URL:          blobs.AbsoluteURL(r, h.baseURL, saved.URL),
			Size:         saved.Size,
			ContentType:  saved.ContentType,
			CreatedByID:  createdBy,
		})
		if err != nil {
			blobs.DeleteBestEffort(ctx, h.files, saved.StoragePath, h.logger)
			rollback()
			return nil, err
		}
		done = append(done, rec)
		out = append(out, toView(rec))
	}

	for _, f := range done {
		h.logger.Info("media uploaded",
			zap.String("filename", f.Filename),
			zap.String("content_type", f.ContentType),
			zap.Int64("size", f.Size))
	}
	return out, nil
}

// List handles GET /media.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "list media")
	defer cancel()

	files, err := h.store.List(ctx)
	if err != nil {
		h.writeSaveError(w, r, "Failed to get media list", err)
		return
	}

	views := make([]fileView, 0, len(files))
	for i := range files {
		views = append(views, toView(&files[i]))
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(views),
		"files":   views,
	})
}

// Delete handles DELETE /media/{filename}. The record is removed first and
// the stored file after it, best-effort.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimSpace(chi.URLParam(r, "filename"))
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		jsonutil.NotFound(w, "File not found", "No media file with that name")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "delete media")
	defer cancel()

	deleted, err := h.store.DeleteByFilename(ctx, filename)
	if err != nil {
		h.writeSaveError(w, r, "Failed to delete file", err)
		return
	}
	key := deleted.StoragePath
	if key == "" {
		key = blobs.StoragePath(blobs.MediaDir, deleted.Filename)
	}
	blobs.DeleteBestEffort(ctx, h.files, key, h.logger)

	h.logger.Info("media deleted", zap.String("filename", filename))
	jsonutil.OK(w, "File deleted successfully", nil)
}

func (h *Handler) maxFiles() int {
	if h.limits.MaxFiles > 0 {
		return h.limits.MaxFiles
	}
	return uploads.DefaultMaxFiles
}

func (h *Handler) maxFileSize() int64 {
	if h.limits.MaxFileSize > 0 {
		return h.limits.MaxFileSize
	}
	return uploads.DefaultMaxFileSize
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error, noFileMsg string) {
	switch {
	case errors.Is(err, uploads.ErrNoFile):
		jsonutil.BadRequest(w, noFileMsg, "Attach at least one file in the media field")
	case errors.Is(err, uploads.ErrTooLarge):
		jsonutil.BadRequest(w, "File too large", "Maximum size is "+uploads.FormatFileSize(h.maxFileSize())+".")
	case errors.Is(err, uploads.ErrTooManyFiles):
		jsonutil.BadRequest(w, "Too many files", fmt.Sprintf("Maximum is %d files.", h.maxFiles()))
	case errors.Is(err, uploads.ErrInvalidType):
		jsonutil.BadRequest(w, "Invalid file type", "Only images and videos are allowed.")
	default:
		jsonutil.BadRequest(w, "File upload error", err.Error())
	}
}

func (h *Handler) writeSaveError(w http.ResponseWriter, r *http.Request, failMsg string, err error) {
	switch {
	case errors.Is(err, filestore.ErrNotFound):
		jsonutil.NotFound(w, "File not found", "No media file with that name")
	case errors.Is(err, filestore.ErrDuplicate):
		jsonutil.Conflict(w, "Duplicate entry", "A media file with that name already exists")
	case errors.Is(err, filestore.ErrStorageUnavailable):
		h.errLog.Log(r, "media storage unavailable", err)
		jsonutil.Unavailable(w, "The database is unavailable, please retry shortly")
	default:
		h.errLog.Log(r, failMsg, err)
		jsonutil.Fail(w, http.StatusInternalServerError, failMsg, "An unexpected error occurred")
	}
}
