package bannermedia

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	bannerstore "github.com/vicarhk/vicarapi/internal/app/store/bannermedia"
	"github.com/vicarhk/vicarapi/internal/app/system/uploads"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"github.com/vicarhk/vicarapi/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h     *Handler
	db    *mongo.Database
	store *bannerstore.Store
	files *testutil.MemStorage
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := bannerstore.New(db)
	files := testutil.NewMemStorage()
	logger := zap.NewNop()
	h := NewHandler(store, files, uploads.Limits{MaxFileSize: 1 << 20}, "https://vicar.example.com", errorsfeature.NewErrorLogger(logger), logger)
	return env{h: h, db: db, store: store, files: files}
}

func uploadRequest(t *testing.T, page, slot, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if page != "" {
		mw.WriteField("page", page)
	}
	if slot != "" {
		mw.WriteField("slotIndex", slot)
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="media"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/save-banner-media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type mediaResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Error   string             `json:"error"`
	Data    models.BannerMedia `json:"data"`
}

func TestSave_CreateThenReplace(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "aboutUs", "0", "first.png", "image/png", []byte("one")))
	rec.AssertStatus(t, http.StatusCreated)

	var first mediaResponse
	rec.DecodeJSON(t, &first)
	if !first.Success || first.Message != "Banner media saved successfully" {
		t.Errorf("first response = %+v", first)
	}
	if !strings.HasPrefix(first.Data.URL, "https://vicar.example.com/vicar_data/media/banner-media/banner-media-") {
		t.Errorf("URL = %q", first.Data.URL)
	}
	firstPath := "media/banner-media/" + first.Data.Filename
	if !e.files.Has(firstPath) {
		t.Fatalf("first file not stored at %s; have %v", firstPath, e.files.Paths())
	}

	rec = testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "aboutUs", "0", "second.mp4", "video/mp4", []byte("two")))
	rec.AssertStatus(t, http.StatusOK)

	var second mediaResponse
	rec.DecodeJSON(t, &second)
	if second.Message != "Banner media updated successfully" {
		t.Errorf("second message = %q", second.Message)
	}
	if second.Data.ID != first.Data.ID {
		t.Errorf("second ID = %v, want same record %v", second.Data.ID, first.Data.ID)
	}
	if second.Data.MimeType != "video/mp4" || second.Data.OriginalName != "second.mp4" {
		t.Errorf("second descriptor = %+v", second.Data)
	}

	if e.files.Has(firstPath) {
		t.Error("replaced file should be deleted")
	}
	if len(e.files.Paths()) != 1 {
		t.Errorf("stored files = %v, want only the replacement", e.files.Paths())
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection(bannerstore.CollectionName).CountDocuments(ctx, map[string]any{"page": "aboutUs"})
	if err != nil || n != 1 {
		t.Errorf("records for aboutUs = %d, %v; want 1", n, err)
	}
}

func TestSave_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name      string
		req       *http.Request
		wantError string
	}{
		{"missing page", uploadRequest(t, "", "0", "a.png", "image/png", []byte("x")), "Missing required fields"},
		{"missing slot", uploadRequest(t, "home", "", "a.png", "image/png", []byte("x")), "Missing required fields"},
		{"missing file", uploadRequest(t, "home", "0", "", "", nil), "Missing required fields"},
		{"bad page", uploadRequest(t, "pricing", "0", "a.png", "image/png", []byte("x")), "Invalid page"},
		{"home slot 5", uploadRequest(t, "home", "5", "a.png", "image/png", []byte("x")), "Invalid slot index"},
		{"about slot 1", uploadRequest(t, "aboutUs", "1", "a.png", "image/png", []byte("x")), "Invalid slot index"},
		{"negative slot", uploadRequest(t, "home", "-1", "a.png", "image/png", []byte("x")), "Invalid slot index"},
		{"non-numeric slot", uploadRequest(t, "home", "two", "a.png", "image/png", []byte("x")), "Invalid slot index"},
		{"fractional slot", uploadRequest(t, "home", "1.5", "a.png", "image/png", []byte("x")), "Invalid slot index"},
		{"bad type", uploadRequest(t, "home", "0", "a.pdf", "application/pdf", []byte("x")), "Invalid file type"},
		{"too large", uploadRequest(t, "home", "0", "a.png", "image/png", bytes.Repeat([]byte("x"), 2<<20)), "File too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.Save(rec, tt.req)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.wantError)
		})
	}

	if paths := e.files.Paths(); len(paths) != 0 {
		t.Errorf("rejected uploads left files: %v", paths)
	}
}

func TestSave_IntegralDecimalSlot(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "home", "2.0", "a.png", "image/png", []byte("x")))
	rec.AssertStatus(t, http.StatusCreated)

	var saved mediaResponse
	rec.DecodeJSON(t, &saved)
	if saved.Data.SlotIndex != 2 {
		t.Errorf("slotIndex = %d, want 2", saved.Data.SlotIndex)
	}

	rec = testutil.NewRecorder()
	e.h.Delete(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/delete-banner-media", `{"page":"home","slotIndex":2.0}`))
	rec.AssertStatus(t, http.StatusOK)
}

func TestParseSlotIndex(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"0", 0},
		{"4", 4},
		{"1.0", 1},
		{"3.00", 3},
		{"-1", -1},
		{"1.5", -1},
		{"two", -1},
		{"", -1},
		{"1e40", -1},
		{"NaN", -1},
	}
	for _, tt := range tests {
		if got := parseSlotIndex(tt.raw); got != tt.want {
			t.Errorf("parseSlotIndex(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSave_StorageFailure(t *testing.T) {
	e := newEnv(t)
	e.files.PutErr = errors.New("disk full")

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "home", "0", "a.png", "image/png", []byte("x")))
	rec.AssertStatus(t, http.StatusInternalServerError)
}

func TestGet_FixedShape(t *testing.T) {
	e := newEnv(t)

	for _, slot := range []string{"1", "3"} {
		rec := testutil.NewRecorder()
		e.h.Save(rec, uploadRequest(t, "home", slot, "s"+slot+".png", "image/png", []byte("x")))
		rec.AssertStatus(t, http.StatusCreated)
	}

	rec := testutil.NewRecorder()
	e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{"page": "home"}))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Success bool        `json:"success"`
		Data    []*slotView `json:"data"`
	}
	rec.DecodeJSON(t, &resp)
	if len(resp.Data) != 5 {
		t.Fatalf("len(data) = %d, want 5", len(resp.Data))
	}
	for i, s := range resp.Data {
		filled := i == 1 || i == 3
		if filled && (s == nil || s.OriginalName != "s"+string(rune('0'+i))+".png") {
			t.Errorf("slot %d = %+v, want populated", i, s)
		}
		if !filled && s != nil {
			t.Errorf("slot %d = %+v, want null", i, s)
		}
	}

	rec = testutil.NewRecorder()
	e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{"page": "discover"}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"data":[null]`)
}

func TestGet_Validation(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Page is required")

	rec = testutil.NewRecorder()
	e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{"page": "Home"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Invalid page")

	rec = testutil.NewRecorder()
	e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", "{not json"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "contactUs", "0", "c.webp", "image/webp", []byte("x")))
	rec.AssertStatus(t, http.StatusCreated)
	var saved mediaResponse
	rec.DecodeJSON(t, &saved)

	rec = testutil.NewRecorder()
	e.h.Delete(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/delete-banner-media", `{"page":"contactUs","slotIndex":"0"}`))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Banner media deleted successfully")

	if e.files.Has("media/banner-media/" + saved.Data.Filename) {
		t.Error("file should be deleted with the record")
	}

	rec = testutil.NewRecorder()
	e.h.Delete(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/delete-banner-media", map[string]any{"page": "contactUs", "slotIndex": 0}))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "Media not found")
}

func TestDelete_FileRemovalFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "ourService", "0", "o.gif", "image/gif", []byte("x")))
	rec.AssertStatus(t, http.StatusCreated)

	e.files.DeleteErr = errors.New("permission denied")
	rec = testutil.NewRecorder()
	e.h.Delete(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/delete-banner-media", map[string]any{"page": "ourService", "slotIndex": 0}))
	rec.AssertStatus(t, http.StatusOK)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := e.store.Get(ctx, models.BannerPageOurService, 0); !errors.Is(err, bannerstore.ErrNotFound) {
		t.Errorf("record should be gone, Get() error = %v", err)
	}
}

func TestDelete_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing slot", map[string]any{"page": "home"}, "Missing required fields"},
		{"missing page", map[string]any{"slotIndex": 0}, "Missing required fields"},
		{"bad page", map[string]any{"page": "x", "slotIndex": 0}, "Invalid page"},
		{"slot out of range", map[string]any{"page": "home", "slotIndex": 5}, "Invalid slot index"},
		{"fractional slot", `{"page":"home","slotIndex":1.5}`, "Invalid slot index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.Delete(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/delete-banner-media", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestSetActive(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Save(rec, uploadRequest(t, "home", "1", "h.png", "image/png", []byte("x")))
	rec.AssertStatus(t, http.StatusCreated)

	slots := func() []map[string]any {
		t.Helper()
		rec := testutil.NewRecorder()
		e.h.Get(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{"page": "home"}))
		rec.AssertStatus(t, http.StatusOK)
		var res struct {
			Data []map[string]any `json:"data"`
		}
		rec.DecodeJSON(t, &res)
		if len(res.Data) != 5 {
			t.Fatalf("slots = %d, want 5", len(res.Data))
		}
		return res.Data
	}

	rec = testutil.NewRecorder()
	e.h.SetActive(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/set-banner-media-active", map[string]any{"page": "home", "slotIndex": 1, "active": false}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Banner media hidden")
	if got := slots(); got[1] != nil {
		t.Errorf("hidden slot still listed: %v", got[1])
	}

	rec = testutil.NewRecorder()
	e.h.SetActive(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/set-banner-media-active", `{"page":"home","slotIndex":"1","active":true}`))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Banner media shown")
	if got := slots(); got[1] == nil {
		t.Error("shown slot missing from list")
	}

	tests := []struct {
		name   string
		body   any
		status int
		want   string
	}{
		{"missing active", map[string]any{"page": "home", "slotIndex": 1}, http.StatusBadRequest, "Missing required fields"},
		{"bad slot", map[string]any{"page": "home", "slotIndex": 9, "active": true}, http.StatusBadRequest, "Invalid slot index"},
		{"empty slot", map[string]any{"page": "home", "slotIndex": 3, "active": true}, http.StatusNotFound, "Media not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.SetActive(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/set-banner-media-active", tt.body))
			rec.AssertStatus(t, tt.status)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestRoutes_WritesRequireAdmin(t *testing.T) {
	e := newEnv(t)
	tm := testutil.TokenManager(t)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		MountRoutes(r, e.h, tm.RequireRole(models.RoleAdmin))
	})

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "home", "0", "a.png", "image/png", []byte("x")))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	req := testutil.BearerFor(t, tm, uploadRequest(t, "home", "0", "a.png", "image/png", []byte("x")), testutil.EditorUser())
	r.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	req = testutil.BearerFor(t, tm, uploadRequest(t, "home", "0", "a.png", "image/png", []byte("x")), testutil.AdminUser())
	r.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/set-banner-media-active", map[string]any{"page": "home", "slotIndex": 0, "active": false}))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/get-banner-media", map[string]string{"page": "home"}))
	rec.AssertStatus(t, http.StatusOK)
}
