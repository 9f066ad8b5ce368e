package adminauth

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	"github.com/vicarhk/vicarapi/internal/app/store/audit"
	"github.com/vicarhk/vicarapi/internal/app/store/ratelimit"
	userstore "github.com/vicarhk/vicarapi/internal/app/store/users"
	"github.com/vicarhk/vicarapi/internal/app/system/auditlog"
	"github.com/vicarhk/vicarapi/internal/app/system/auth"
	"github.com/vicarhk/vicarapi/internal/app/system/authutil"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"github.com/vicarhk/vicarapi/internal/testutil"
	"go.uber.org/zap"
)

const testPassword = "Sup3r-Secret-Pass"

type env struct {
	h      *Handler
	users  *userstore.Store
	events *audit.Store
	tm     *auth.TokenManager
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	users := userstore.New(db)
	tm := testutil.TokenManager(t)
	logger := zap.NewNop()
	events := audit.New(db)
	h := NewHandler(users, tm, ratelimit.New(db),
		ratelimit.Policy{Max: 3, Window: 15 * time.Minute},
		auditlog.New(events, logger, auditlog.Config{}),
		errorsfeature.NewErrorLogger(logger), logger)
	return env{h: h, users: users, events: events, tm: tm}
}

func (e env) seed(t *testing.T, username string) models.AdminUser {
	t.Helper()
	hash, err := authutil.HashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := e.users.Create(ctx, models.AdminUser{Username: username, PasswordHash: hash, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e env) login(t *testing.T, username, password string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	e.h.Login(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/adminLogin",
		map[string]string{"username": username, "password": password}))
	return rec
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t)
	u := e.seed(t, "Manager")

	rec := e.login(t, "manager", testPassword)
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		Success bool     `json:"success"`
		Token   string   `json:"token"`
		User    userView `json:"user"`
	}
	rec.DecodeJSON(t, &resp)
	if !resp.Success || resp.Token == "" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.User.ID != u.ID.Hex() || resp.User.Role != models.RoleAdmin {
		t.Errorf("user = %+v", resp.User)
	}

	claims, err := e.tm.Parse(resp.Token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != u.ID.Hex() || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
	rec.AssertContains(t, `"expiresAt"`)
	if body := rec.Body.String(); strings.Contains(body, "password") {
		t.Errorf("response leaks password data: %s", body)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "manager")

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "manager", "wrong-password"},
		{"unknown user", "nobody", testPassword},
		{"empty password", "manager", ""},
		{"empty username", "", testPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.login(t, tt.username, tt.password)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, "Invalid credentials")
		})
	}
}

func TestLogin_RateLimitsFailures(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "manager")

	for i := 0; i < 3; i++ {
		e.login(t, "manager", "bad-guess").AssertStatus(t, http.StatusBadRequest)
	}

	rec := e.login(t, "MANAGER", testPassword)
	rec.AssertStatus(t, http.StatusTooManyRequests)
	rec.AssertContains(t, "Too many login attempts")
	rec.AssertContains(t, "15 minutes")
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}

	// Other usernames are unaffected.
	e.seed(t, "editor1")
	e.login(t, "editor1", testPassword).AssertStatus(t, http.StatusOK)
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "manager")

	for i := 0; i < 2; i++ {
		e.login(t, "manager", "bad-guess").AssertStatus(t, http.StatusBadRequest)
	}
	e.login(t, "manager", testPassword).AssertStatus(t, http.StatusOK)

	for i := 0; i < 2; i++ {
		e.login(t, "manager", "bad-guess").AssertStatus(t, http.StatusBadRequest)
	}
	e.login(t, "manager", testPassword).AssertStatus(t, http.StatusOK)
}

func TestCreateAccount(t *testing.T) {
	e := newEnv(t)

	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/createAccount", map[string]string{
		"username":  "  NewEditor ",
		"password":  "another-Strong-1",
		"email":     "Editor@Example.com",
		"role":      "editor",
		"firstName": "Siu",
		"lastName":  "Ming",
	})
	e.h.CreateAccount(rec, testutil.WithUser(req, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, "User created successfully")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := e.users.GetByUsername(ctx, "neweditor")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if u.Role != models.RoleEditor || u.Email != "editor@example.com" {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash == "another-Strong-1" || !authutil.CheckPassword("another-Strong-1", u.PasswordHash) {
		t.Error("password should be stored as a bcrypt hash")
	}

	rec = testutil.NewRecorder()
	e.h.CreateAccount(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/createAccount", map[string]string{
		"username": "neweditor",
		"password": "yet-another-Pass-2",
	}))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "Username already exists")
}

func TestCreateAccount_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"missing username", map[string]string{"password": "long-enough-pass"}, "username"},
		{"missing password", map[string]string{"username": "someone"}, "password"},
		{"short password", map[string]string{"username": "someone", "password": "short"}, "password"},
		{"common password", map[string]string{"username": "someone", "password": "password1"}, "password"},
		{"bad email", map[string]string{"username": "someone", "password": "long-enough-pass", "email": "nope"}, "email"},
		{"bad role", map[string]string{"username": "someone", "password": "long-enough-pass", "role": "owner"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.CreateAccount(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/createAccount", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			rec.DecodeJSON(t, &resp)
			if resp.Fields[tt.field] == "" {
				t.Errorf("fields = %v, want an error for %s", resp.Fields, tt.field)
			}
		})
	}
}

func TestRoutes_CreateAccountRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "manager")

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		MountRoutes(r, e.h, e.tm.RequireRole(models.RoleAdmin))
	})

	body := map[string]string{"username": "second", "password": "second-Strong-Pass"}

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/createAccount", body))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/adminLogin",
		map[string]string{"username": "manager", "password": testPassword}))
	rec.AssertStatus(t, http.StatusOK)
	var login struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(t, &login)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/createAccount", body)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusCreated)
}

func TestLogin_WithoutTokenManager(t *testing.T) {
	logger := zap.NewNop()
	h := NewHandler(nil, nil, nil, ratelimit.Policy{}, nil, errorsfeature.NewErrorLogger(logger), logger)

	rec := testutil.NewRecorder()
	h.Login(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/adminLogin",
		map[string]string{"username": "admin", "password": testPassword}))

	rec.AssertStatus(t, http.StatusServiceUnavailable)
}

func TestLogin_RecordsAuditEvents(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "dispatch")

	e.login(t, "dispatch", "wrong-password").AssertStatus(t, http.StatusBadRequest)
	e.login(t, "nobody", testPassword).AssertStatus(t, http.StatusBadRequest)
	e.login(t, "dispatch", testPassword).AssertStatus(t, http.StatusOK)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	failed, err := e.events.Query(ctx, audit.QueryFilter{EventType: audit.EventLoginFailed})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	reasons := map[string]string{}
	for _, ev := range failed {
		reasons[ev.Username] = ev.FailureReason
	}
	if reasons["dispatch"] != "wrong password" || reasons["nobody"] != "unknown user" {
		t.Errorf("failure reasons = %v", reasons)
	}

	ok, _ := e.events.Query(ctx, audit.QueryFilter{EventType: audit.EventLoginSuccess})
	if len(ok) != 1 || ok[0].Username != "dispatch" {
		t.Errorf("success events = %+v", ok)
	}
}
