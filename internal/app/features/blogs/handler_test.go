package blogs

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	blogstore "github.com/vicarhk/vicarapi/internal/app/store/blogs"
	filestore "github.com/vicarhk/vicarapi/internal/app/store/file"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"github.com/vicarhk/vicarapi/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h         *Handler
	store     *blogstore.Store
	fileStore *filestore.Store
	files     *testutil.MemStorage
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := blogstore.New(db)
	fileStore := filestore.New(db)
	files := testutil.NewMemStorage()
	logger := zap.NewNop()
	h := NewHandler(store, fileStore, files, errorsfeature.NewErrorLogger(logger), logger)
	return env{h: h, store: store, fileStore: fileStore, files: files}
}

func withID(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func validBody(title string) map[string]any {
	return map[string]any{
		"title":    map[string]string{"en": title, "zh": title + " 中文"},
		"summary":  map[string]string{"en": "Summary of " + title, "zh": "摘要"},
		"body":     map[string]string{"en": "<p>Hello <strong>" + title + "</strong></p>", "zh": "<p>你好</p>"},
		"linkto":   "/discover",
		"mediaurl": "",
	}
}

type blogResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Data    models.DiscoverBlog `json:"data"`
}

func (e env) create(t *testing.T, body map[string]any) models.DiscoverBlog {
	t.Helper()
	rec := testutil.NewRecorder()
	e.h.Create(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/create-blogs", body))
	rec.AssertStatus(t, http.StatusCreated)
	var resp blogResponse
	rec.DecodeJSON(t, &resp)
	return resp.Data
}

func TestCreate(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.Create(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/create-blogs", validBody("Porsche")))
	rec.AssertStatus(t, http.StatusCreated)

	var resp blogResponse
	rec.DecodeJSON(t, &resp)
	if !resp.Success || resp.Message != "Blog created successfully" {
		t.Errorf("response = %+v", resp)
	}
	b := resp.Data
	if b.ID.IsZero() || b.CreatedBy.IsZero() || !b.CreatedBy.Equal(b.LastModify) {
		t.Errorf("timestamps/id = %+v", b)
	}
	if b.BodyFormat != models.BodyFormatHTML {
		t.Errorf("BodyFormat = %q, want html", b.BodyFormat)
	}
	if b.Title.Zh != "Porsche 中文" || b.LinkTo != "/discover" {
		t.Errorf("fields = %+v", b)
	}
}

func TestCreate_SanitizesAndConvertsBodies(t *testing.T) {
	e := newEnv(t)

	body := validBody("Safe")
	body["body"] = map[string]string{
		"en": `<p onclick="x()">Hi<script>alert(1)</script></p>`,
		"zh": "plain & simple",
	}
	b := e.create(t, body)

	if strings.Contains(b.Body.En, "script") || strings.Contains(b.Body.En, "onclick") {
		t.Errorf("Body.En not sanitized: %q", b.Body.En)
	}
	if !strings.Contains(b.Body.Zh, "plain &amp; simple") {
		t.Errorf("Body.Zh plain text should be escaped HTML: %q", b.Body.Zh)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)

	missingSummary := validBody("x")
	delete(missingSummary, "summary")

	missingZh := validBody("x")
	missingZh["title"] = map[string]string{"en": "Only English"}

	blankBody := validBody("x")
	blankBody["body"] = map[string]string{"en": "  ", "zh": "内容"}

	longTitle := validBody(strings.Repeat("t", 201))

	badLink := validBody("x")
	badLink["linkto"] = "javascript:alert(1)"

	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing summary", missingSummary, "Missing required fields"},
		{"empty object", map[string]any{}, "Missing required fields"},
		{"missing chinese", missingZh, "Incomplete bilingual content"},
		{"blank body", blankBody, "Incomplete bilingual content"},
		{"title too long", longTitle, "title.en"},
		{"bad link", badLink, "linkto"},
		{"malformed json", "{", "Invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.Create(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/create-blogs", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
		})
	}
}

func TestLoadSingle_UpdateAndNotFound(t *testing.T) {
	e := newEnv(t)
	b := e.create(t, validBody("Original"))

	rec := testutil.NewRecorder()
	e.h.LoadSingle(rec, withID(testutil.NewRequest(http.MethodGet, "/api/load-single-blogs/"+b.ID.Hex()), "id", b.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Original")

	update := validBody("Changed")
	update["mediaurl"] = "https://cdn.example.com/media/x.png"
	rec = testutil.NewRecorder()
	e.h.Update(rec, withID(testutil.NewJSONRequest(t, http.MethodPut, "/api/update-blogs/"+b.ID.Hex(), update), "id", b.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	var resp blogResponse
	rec.DecodeJSON(t, &resp)
	if resp.Message != "Blog updated successfully" || resp.Data.Title.En != "Changed" {
		t.Errorf("update response = %+v", resp)
	}
	if !resp.Data.CreatedBy.Equal(b.CreatedBy) {
		t.Errorf("createdby changed: %v -> %v", b.CreatedBy, resp.Data.CreatedBy)
	}
	if resp.Data.MediaURL != "https://cdn.example.com/media/x.png" {
		t.Errorf("MediaURL = %q", resp.Data.MediaURL)
	}

	missing := "5f0000000000000000000000"
	for _, id := range []string{missing, "not-an-id"} {
		rec = testutil.NewRecorder()
		e.h.LoadSingle(rec, withID(testutil.NewRequest(http.MethodGet, "/api/load-single-blogs/"+id), "id", id))
		rec.AssertStatus(t, http.StatusNotFound)
		rec.AssertContains(t, "Blog not found")

		rec = testutil.NewRecorder()
		e.h.Update(rec, withID(testutil.NewJSONRequest(t, http.MethodPut, "/api/update-blogs/"+id, validBody("x")), "id", id))
		rec.AssertStatus(t, http.StatusNotFound)
	}
}

func TestLoadAll_NewestFirst(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	e.h.LoadAll(rec, testutil.NewRequest(http.MethodPost, "/api/load-all-blogs"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"count":0`)
	rec.AssertContains(t, `"data":[]`)

	e.create(t, validBody("First"))
	e.create(t, validBody("Second"))

	rec = testutil.NewRecorder()
	e.h.LoadAll(rec, testutil.NewRequest(http.MethodPost, "/api/load-all-blogs"))
	rec.AssertStatus(t, http.StatusOK)
	var resp struct {
		Count int                   `json:"count"`
		Data  []models.DiscoverBlog `json:"data"`
	}
	rec.DecodeJSON(t, &resp)
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("count = %d, len = %d", resp.Count, len(resp.Data))
	}
	if resp.Data[0].Title.En != "Second" {
		t.Errorf("first item = %q, want Second", resp.Data[0].Title.En)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	e.create(t, validBody("Ferrari Roma"))
	e.create(t, validBody("Lamborghini (Urus)"))

	tests := []struct {
		query string
		want  int
	}{
		{"ferrari", 1},
		{"FERRARI%20roma", 1},
		{"(Urus)", 1},
		{"中文", 2},
		{".*", 0},
		{"bugatti", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.Search(rec, withID(testutil.NewRequest(http.MethodGet, "/api/search-blogs/x"), "query", tt.query))
			rec.AssertStatus(t, http.StatusOK)
			var resp struct {
				Count int    `json:"count"`
				Query string `json:"query"`
			}
			rec.DecodeJSON(t, &resp)
			if resp.Count != tt.want {
				t.Errorf("count = %d, want %d", resp.Count, tt.want)
			}
		})
	}
}

func TestPage(t *testing.T) {
	e := newEnv(t)
	for _, title := range []string{"a", "b", "c"} {
		e.create(t, validBody(title))
	}

	type pageResp struct {
		Data       []models.DiscoverBlog `json:"data"`
		Pagination pagination            `json:"pagination"`
	}

	rec := testutil.NewRecorder()
	e.h.Page(rec, withID(testutil.NewRequest(http.MethodGet, "/api/blogs-page/2?limit=2"), "page", "2"))
	rec.AssertStatus(t, http.StatusOK)
	var resp pageResp
	rec.DecodeJSON(t, &resp)
	want := pagination{CurrentPage: 2, TotalPages: 2, TotalItems: 3, ItemsPerPage: 2, HasNextPage: false, HasPrevPage: true}
	if resp.Pagination != want {
		t.Errorf("pagination = %+v, want %+v", resp.Pagination, want)
	}
	if len(resp.Data) != 1 || resp.Data[0].Title.En != "a" {
		t.Errorf("data = %+v", resp.Data)
	}

	rec = testutil.NewRecorder()
	e.h.Page(rec, withID(testutil.NewRequest(http.MethodGet, "/api/blogs-page/zero?limit=-3"), "page", "zero"))
	rec.AssertStatus(t, http.StatusOK)
	resp = pageResp{}
	rec.DecodeJSON(t, &resp)
	if resp.Pagination.CurrentPage != 1 || resp.Pagination.ItemsPerPage != 10 || len(resp.Data) != 3 {
		t.Errorf("defaults not applied: %+v", resp.Pagination)
	}
}

func TestDelete_RemovesUnsharedMedia(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const shared = "https://api.example.com/vicar_data/media/media-shared.png"
	const own = "https://api.example.com/vicar_data/media/media-own.png"
	for name, url := range map[string]string{"media-shared.png": shared, "media-own.png": own} {
		key := "media/" + name
		if err := e.files.Put(ctx, key, strings.NewReader("x"), nil); err != nil {
			t.Fatal(err)
		}
		if _, err := e.fileStore.Create(ctx, filestore.CreateInput{
			Filename: name, OriginalName: name, StoragePath: key, URL: url, Size: 1, ContentType: "image/png",
		}); err != nil {
			t.Fatal(err)
		}
	}

	withMedia := func(title, url string) map[string]any {
		b := validBody(title)
		b["mediaurl"] = url
		return b
	}
	ownBlog := e.create(t, withMedia("own", own))
	sharedA := e.create(t, withMedia("shared a", shared))
	e.create(t, withMedia("shared b", shared))

	rec := testutil.NewRecorder()
	e.h.Delete(rec, withID(testutil.NewRequest(http.MethodDelete, "/api/delete-blogs/x"), "id", ownBlog.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Blog deleted successfully")
	if e.files.Has("media/media-own.png") {
		t.Error("unshared media file should be removed")
	}
	if _, err := e.fileStore.GetByFilename(ctx, "media-own.png"); !errors.Is(err, filestore.ErrNotFound) {
		t.Errorf("media record should be removed, err = %v", err)
	}

	rec = testutil.NewRecorder()
	e.h.Delete(rec, withID(testutil.NewRequest(http.MethodDelete, "/api/delete-blogs/x"), "id", sharedA.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)
	if !e.files.Has("media/media-shared.png") {
		t.Error("media still used by another blog should be kept")
	}

	rec = testutil.NewRecorder()
	e.h.Delete(rec, withID(testutil.NewRequest(http.MethodDelete, "/api/delete-blogs/x"), "id", sharedA.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_WritesRequireAdmin(t *testing.T) {
	e := newEnv(t)
	tm := testutil.TokenManager(t)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		MountRoutes(r, e.h, tm.RequireRole(models.RoleAdmin))
	})

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/create-blogs", validBody("x")))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.BearerFor(t, tm, testutil.NewJSONRequest(t, http.MethodPost, "/api/create-blogs", validBody("Routed")), testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusCreated)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/api/search-blogs/Routed"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"count":1`)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/api/blogs-page/1"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"totalItems":1`)
}
