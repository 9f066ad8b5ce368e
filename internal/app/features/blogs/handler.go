// Package blogs serves the Discover page's bilingual blog posts.
package blogs

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	blogstore "github.com/vicarhk/vicarapi/internal/app/store/blogs"
	filestore "github.com/vicarhk/vicarapi/internal/app/store/file"
	"github.com/vicarhk/vicarapi/internal/app/system/blobs"
	"github.com/vicarhk/vicarapi/internal/app/system/inputval"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/normalize"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides blog handlers.
type Handler struct {
	store     *blogstore.Store
	fileStore *filestore.Store
	files     blobs.Store
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// NewHandler creates a blogs Handler. fileStore and files are used to remove
// a deleted blog's media asset.
func NewHandler(store *blogstore.Store, fileStore *filestore.Store, files blobs.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		fileStore: fileStore,
		files:     files,
		errLog:    errLog,
		logger:    logger,
	}
}

// blogInput is the create/update request body.
type blogInput struct {
	Title    *models.LocalizedText `json:"title"`
	Summary  *models.LocalizedText `json:"summary"`
	Body     *models.LocalizedText `json:"body"`
	LinkTo   string                `json:"linkto"`
	MediaURL string                `json:"mediaurl"`
}

// blogFields is blogInput flattened for rule checks.
type blogFields struct {
	TitleEn   string `json:"title.en" validate:"max=200" label:"Title (English)"`
	TitleZh   string `json:"title.zh" validate:"max=200" label:"Title (Chinese)"`
	SummaryEn string `json:"summary.en" validate:"max=500" label:"Summary (English)"`
	SummaryZh string `json:"summary.zh" validate:"max=500" label:"Summary (Chinese)"`
	LinkTo    string `json:"linkto" validate:"linkurl" label:"Link"`
	MediaURL  string `json:"mediaurl" validate:"linkurl" label:"Media URL"`
}

// decodeInput reads and validates a blog body. It writes the 400 response
// and returns false when the input is unusable.
func decodeInput(w http.ResponseWriter, r *http.Request) (blogstore.Input, bool) {
	var in blogInput
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return blogstore.Input{}, false
	}
	if in.Title == nil || in.Summary == nil || in.Body == nil {
		jsonutil.BadRequest(w, "Missing required fields", "Title, summary, and body are required for both languages")
		return blogstore.Input{}, false
	}

	title := trimText(*in.Title)
	summary := trimText(*in.Summary)
	body := *in.Body
	if title.En == "" || title.Zh == "" || summary.En == "" || summary.Zh == "" ||
		strings.TrimSpace(body.En) == "" || strings.TrimSpace(body.Zh) == "" {
		jsonutil.BadRequest(w, "Incomplete bilingual content", "Both English and Chinese versions are required for title, summary, and body")
		return blogstore.Input{}, false
	}

	fields := blogFields{
		TitleEn:   title.En,
		TitleZh:   title.Zh,
		SummaryEn: summary.En,
		SummaryZh: summary.Zh,
		LinkTo:    strings.TrimSpace(in.LinkTo),
		MediaURL:  strings.TrimSpace(in.MediaURL),
	}
	if res := inputval.Validate(fields); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return blogstore.Input{}, false
	}

	return blogstore.Input{
		Title:    title,
		Summary:  summary,
		Body:     body,
		LinkTo:   fields.LinkTo,
		MediaURL: fields.MediaURL,
	}, true
}

func trimText(t models.LocalizedText) models.LocalizedText {
	return models.LocalizedText{En: strings.TrimSpace(t.En), Zh: strings.TrimSpace(t.Zh)}
}

// LoadAll handles POST /load-all-blogs.
func (h *Handler) LoadAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "load all blogs")
	defer cancel()

	blogs, err := h.store.List(ctx)
	if err != nil {
		h.writeStoreError(w, r, "Failed to fetch blogs", err)
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(blogs),
		"data":    blogs,
	})
}

// LoadSingle handles GET /load-single-blogs/{id}.
func (h *Handler) LoadSingle(w http.ResponseWriter, r *http.Request) {
	id, ok := blogID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "load blog")
	defer cancel()

	blog, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "Failed to fetch blog", err)
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    blog,
	})
}

// Create handles POST /create-blogs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "create blog")
	defer cancel()

	blog, err := h.store.Create(ctx, in)
	if err != nil {
		h.writeStoreError(w, r, "Failed to create blog", err)
		return
	}

	h.logger.Info("blog created", zap.String("blog_id", blog.ID.Hex()))
	jsonutil.Created(w, "Blog created successfully", blog)
}

// Update handles PUT /update-blogs/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := blogID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "update blog")
	defer cancel()

	blog, err := h.store.Update(ctx, id, in)
	if err != nil {
		h.writeStoreError(w, r, "Failed to update blog", err)
		return
	}

	h.logger.Info("blog updated", zap.String("blog_id", id.Hex()))
	jsonutil.OK(w, "Blog updated successfully", blog)
}

// Delete handles DELETE /delete-blogs/{id}. The blog's media asset is
// removed afterwards unless another blog still uses it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := blogID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "delete blog")
	defer cancel()

	blog, err := h.store.Delete(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "Failed to delete blog", err)
		return
	}

	h.removeMedia(r, blog.MediaURL)

	h.logger.Info("blog deleted", zap.String("blog_id", id.Hex()))
	jsonutil.OK(w, "Blog deleted successfully", blog)
}

// removeMedia deletes the library record and stored file behind mediaURL.
// Failures are logged and ignored.
func (h *Handler) removeMedia(r *http.Request, mediaURL string) {
	if mediaURL == "" || h.fileStore == nil {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "delete blog media")
	defer cancel()

	n, err := h.store.CountByMediaURL(ctx, mediaURL)
	if err != nil {
		h.logger.Warn("blog media kept: reference count failed", zap.String("url", mediaURL), zap.Error(err))
		return
	}
	if n > 0 {
		return
	}

	f, err := h.fileStore.GetByURL(ctx, mediaURL)
	if err != nil {
		if !errors.Is(err, filestore.ErrNotFound) {
			h.logger.Warn("blog media lookup failed", zap.String("url", mediaURL), zap.Error(err))
		}
		return
	}
	if _, err := h.fileStore.DeleteByFilename(ctx, f.Filename); err != nil && !errors.Is(err, filestore.ErrNotFound) {
		h.logger.Warn("blog media record not removed", zap.String("filename", f.Filename), zap.Error(err))
		return
	}
	blobs.DeleteBestEffort(ctx, h.files, f.StoragePath, h.logger)
}

// Search handles GET /search-blogs/{query}.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "query")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	query := normalize.SearchQuery(raw)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "search blogs")
	defer cancel()

	blogs, err := h.store.Search(ctx, query)
	if err != nil {
		h.writeStoreError(w, r, "Failed to search blogs", err)
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(blogs),
		"query":   query,
		"data":    blogs,
	})
}

type pagination struct {
	CurrentPage  int64 `json:"currentPage"`
	TotalPages   int64 `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int64 `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

// Page handles GET /blogs-page/{page}?limit=N. A page or limit that is not a
// positive integer falls back to 1 and 10.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	page := positiveInt(chi.URLParam(r, "page"), 1)
	limit := positiveInt(r.URL.Query().Get("limit"), 10)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "blogs page")
	defer cancel()

	p, err := h.store.ListPage(ctx, page, limit)
	if err != nil {
		h.writeStoreError(w, r, "Failed to fetch blogs", err)
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    p.Blogs,
		"pagination": pagination{
			CurrentPage:  p.CurrentPage,
			TotalPages:   p.TotalPages,
			TotalItems:   p.TotalItems,
			ItemsPerPage: p.ItemsPerPage,
			HasNextPage:  p.HasNext(),
			HasPrevPage:  p.HasPrev(),
		},
	})
}

func positiveInt(s string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// blogID parses the {id} URL parameter. An ID that is not an ObjectID
// cannot name a blog, so it is reported as not found.
func blogID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		jsonutil.NotFound(w, "Blog not found", "No blog with that ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, failMsg string, err error) {
	switch {
	case errors.Is(err, blogstore.ErrNotFound):
		jsonutil.NotFound(w, "Blog not found", "No blog with that ID")
	case errors.Is(err, blogstore.ErrInvalidBody):
		jsonutil.BadRequest(w, "Invalid body", err.Error())
	case errors.Is(err, blogstore.ErrStorageUnavailable):
		h.errLog.Log(r, "blog storage unavailable", err)
		jsonutil.Unavailable(w, "The database is unavailable, please retry shortly")
	default:
		h.errLog.Log(r, failMsg, err)
		jsonutil.Fail(w, http.StatusInternalServerError, failMsg, "An unexpected error occurred")
	}
}
