// Package bannermedia serves the banner slot endpoints: upload into a
// (page, slotIndex) slot, fetch a page's fixed-shape slot array, and delete
// a slot together with its stored file.
package bannermedia

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	bannerstore "github.com/vicarhk/vicarapi/internal/app/store/bannermedia"
	"github.com/vicarhk/vicarapi/internal/app/system/blobs"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"github.com/vicarhk/vicarapi/internal/app/system/uploads"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.uber.org/zap"
)

// Handler handles banner media requests.
type Handler struct {
	store   *bannerstore.Store
	files   blobs.Store
	limits  uploads.Limits
	baseURL string
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a banner media Handler. baseURL, when set, prefixes
// relative storage URLs; otherwise the request host is used.
func NewHandler(store *bannerstore.Store, files blobs.Store, limits uploads.Limits, baseURL string, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
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

// slotView is one populated entry of the get-banner-media array.
type slotView struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Thumbnail    *string   `json:"thumbnail"`
}

// slotIndexValue accepts a slot index sent as a JSON number or a numeric string.
type slotIndexValue struct {
	set   bool
	value int
	raw   string
}

func (s *slotIndexValue) UnmarshalJSON(b []byte) error {
	s.set = string(b) != "null"
	if !s.set {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		s.raw = n.String()
	} else {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("slotIndex must be a number")
		}
		s.raw = strings.TrimSpace(str)
	}
	s.value = parseSlotIndex(s.raw)
	return nil
}

// parseSlotIndex reads an integer slot index. Integral decimals such as
// "1.0" are accepted; anything else yields -1 so validation reports it.
func parseSlotIndex(raw string) int {
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return -1
	}
	return int(f)
}

// Save handles POST /save-banner-media (multipart: media, page, slotIndex).
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := uploads.ParseForm(w, r, h.limits, 1); err != nil {
		h.writeUploadError(w, err)
		return
	}

	page := models.BannerPage(strings.TrimSpace(r.FormValue("page")))
	rawSlot := strings.TrimSpace(r.FormValue("slotIndex"))
	fh, fileErr := uploads.File(r, "media", h.limits)
	if page == "" || rawSlot == "" || errors.Is(fileErr, uploads.ErrNoFile) {
		jsonutil.BadRequest(w, "Missing required fields", "Page, slotIndex, and media file are required")
		return
	}

	slotIndex := parseSlotIndex(rawSlot)
	if err := bannerstore.ValidateSlot(page, slotIndex); err != nil {
		writeSlotError(w, page, err)
		return
	}
	if fileErr != nil {
		h.writeUploadError(w, fileErr)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.logger, "save banner media")
	defer cancel()

	saved, err := uploads.Save(ctx, h.files, blobs.BannerDir, "banner-media", fh, h.now())
	if err != nil {
		h.errLog.Log(r, "failed to store banner file", err)
		jsonutil.Fail(w, http.StatusInternalServerError, "Failed to save banner media", "The file could not be stored")
		return
	}

	res, err := h.store.Upsert(ctx, page, slotIndex, bannerstore.Descriptor{
		Filename:     saved.Filename,
		OriginalName: saved.OriginalName,
		MimeType:     saved.ContentType,
		FileSize:     saved.Size,
		URL:          blobs.AbsoluteURL(r, h.baseURL, saved.URL),
		StoragePath:  saved.StoragePath,
	})
	if err != nil {
		blobs.DeleteBestEffort(ctx, h.files, saved.StoragePath, h.logger)
		h.writeStoreError(w, r, page, "Failed to save banner media", err)
		return
	}

	if res.Replaced != nil {
		blobs.DeleteBestEffort(ctx, h.files, storagePathOf(res.Replaced), h.logger)
	}

	h.logger.Info("banner media saved",
		zap.String("page", string(page)),
		zap.Int("slot_index", slotIndex),
		zap.String("filename", saved.Filename),
		zap.Bool("created", res.Created))

	if res.Created {
		jsonutil.Created(w, "Banner media saved successfully", res.Media)
		return
	}
	jsonutil.OK(w, "Banner media updated successfully", res.Media)
}

// Get handles POST /get-banner-media with {"page": ...}. The data array
// always has one entry per slot, null where the slot is empty.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Page string `json:"page"`
	}
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	page := models.BannerPage(strings.TrimSpace(in.Page))
	if page == "" {
		jsonutil.BadRequest(w, "Missing required fields", "Page is required")
		return
	}
	if !models.IsValidBannerPage(page) {
		writeSlotError(w, page, bannerstore.ErrInvalidPage)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get banner media")
	defer cancel()

	slots, err := h.store.SlotsForPage(ctx, page)
	if err != nil {
		h.writeStoreError(w, r, page, "Failed to get banner media", err)
		return
	}

	out := make([]*slotView, len(slots))
	for i, m := range slots {
		if m == nil {
			continue
		}
		out[i] = &slotView{
			ID:           m.ID.Hex(),
			URL:          m.URL,
			MimeType:     m.MimeType,
			Size:         m.FileSize,
			UploadedAt:   m.UploadedAt,
			Filename:     m.Filename,
			OriginalName: m.OriginalName,
			Thumbnail:    m.Thumbnail,
		}
	}
	jsonutil.OK(w, "Banner media retrieved successfully", out)
}

// Delete handles POST /delete-banner-media with {"page", "slotIndex"}.
// The record is removed first; the stored file is then removed best-effort.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Page      string         `json:"page"`
		SlotIndex slotIndexValue `json:"slotIndex"`
	}
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	page := models.BannerPage(strings.TrimSpace(in.Page))
	if page == "" || !in.SlotIndex.set {
		jsonutil.BadRequest(w, "Missing required fields", "Page and slotIndex are required")
		return
	}
	if err := bannerstore.ValidateSlot(page, in.SlotIndex.value); err != nil {
		writeSlotError(w, page, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "delete banner media")
	defer cancel()

	deleted, err := h.store.Delete(ctx, page, in.SlotIndex.value)
	if err != nil {
		h.writeStoreError(w, r, page, "Failed to delete banner media", err)
		return
	}

	blobs.DeleteBestEffort(ctx, h.files, storagePathOf(deleted), h.logger)

	h.logger.Info("banner media deleted",
		zap.String("page", string(page)),
		zap.Int("slot_index", in.SlotIndex.value),
		zap.String("filename", deleted.Filename))
	jsonutil.OK(w, "Banner media deleted successfully", deleted)
}

// SetActive handles POST /set-banner-media-active with {"page", "slotIndex",
// "active"}. A hidden slot keeps its record and file but is left out of
// get-banner-media until shown again or replaced.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Page      string         `json:"page"`
		SlotIndex slotIndexValue `json:"slotIndex"`
		Active    *bool          `json:"active"`
	}
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	page := models.BannerPage(strings.TrimSpace(in.Page))
	if page == "" || !in.SlotIndex.set || in.Active == nil {
		jsonutil.BadRequest(w, "Missing required fields", "Page, slotIndex, and active are required")
		return
	}
	if err := bannerstore.ValidateSlot(page, in.SlotIndex.value); err != nil {
		writeSlotError(w, page, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "set banner media active")
	defer cancel()

	if err := h.store.SetActive(ctx, page, in.SlotIndex.value, *in.Active); err != nil {
		h.writeStoreError(w, r, page, "Failed to update banner media", err)
		return
	}

	h.logger.Info("banner media visibility changed",
		zap.String("page", string(page)),
		zap.Int("slot_index", in.SlotIndex.value),
		zap.Bool("active", *in.Active))

	msg := "Banner media hidden"
	if *in.Active {
		msg = "Banner media shown"
	}
	jsonutil.OK(w, msg, map[string]any{
		"page":      page,
		"slotIndex": in.SlotIndex.value,
		"isActive":  *in.Active,
	})
}

// storagePathOf returns where a record's file lives. Records written before
// storagePath was persisted fall back to the banner directory and filename.
func storagePathOf(m *models.BannerMedia) string {
	if m.StoragePath != "" {
		return m.StoragePath
	}
	if m.Filename == "" {
		return ""
	}
	return blobs.StoragePath(blobs.BannerDir, m.Filename)
}

func writeSlotError(w http.ResponseWriter, page models.BannerPage, err error) {
	switch {
	case errors.Is(err, bannerstore.ErrInvalidPage):
		pages := make([]string, 0, 5)
		for _, p := range models.AllBannerPages() {
			pages = append(pages, string(p))
		}
		jsonutil.BadRequest(w, "Invalid page", "Page must be one of: "+strings.Join(pages, ", "))
	case errors.Is(err, bannerstore.ErrInvalidSlotIndex):
		max := models.MaxSlotsFor(page)
		jsonutil.BadRequest(w, "Invalid slot index",
			fmt.Sprintf("Slot index must be between 0 and %d for %s page", max-1, page))
	default:
		jsonutil.BadRequest(w, "Validation failed", err.Error())
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, page models.BannerPage, failMsg string, err error) {
	switch {
	case bannerstore.IsValidation(err):
		writeSlotError(w, page, err)
	case errors.Is(err, bannerstore.ErrNotFound):
		jsonutil.NotFound(w, "Media not found", "No media found for this page and slot")
	case errors.Is(err, bannerstore.ErrDuplicateSlot):
		jsonutil.Conflict(w, "Duplicate entry", "Media already exists for this page and slot")
	case errors.Is(err, bannerstore.ErrStorageUnavailable):
		h.errLog.Log(r, "banner media storage unavailable", err)
		jsonutil.Unavailable(w, "The database is unavailable, please retry shortly")
	default:
		h.errLog.Log(r, failMsg, err)
		jsonutil.Fail(w, http.StatusInternalServerError, failMsg, "An unexpected error occurred")
	}
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		jsonutil.BadRequest(w, "File too large", "Maximum size is "+uploads.FormatFileSize(h.maxFileSize())+".")
	case errors.Is(err, uploads.ErrInvalidType):
		jsonutil.BadRequest(w, "Invalid file type", "Only images and videos are allowed.")
	case errors.Is(err, uploads.ErrNoFile):
		jsonutil.BadRequest(w, "Missing required fields", "Page, slotIndex, and media file are required")
	default:
		jsonutil.BadRequest(w, "File upload error", err.Error())
	}
}

func (h *Handler) maxFileSize() int64 {
	if h.limits.MaxFileSize > 0 {
		return h.limits.MaxFileSize
	}
	return uploads.DefaultMaxFileSize
}
