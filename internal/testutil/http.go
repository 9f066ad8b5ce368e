package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestJWTSecret signs tokens in tests.
const TestJWTSecret = "test-secret-0123456789abcdefghijklmnop"

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Username string
	Role     string
}

// AdminUser returns a TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "testadmin",
		Role:     "admin",
	}
}

// EditorUser returns a TestUser with editor role.
func EditorUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "testeditor",
		Role:     "editor",
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the bearer-token middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.AdminUser{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// TokenManager returns a TokenManager signing with TestJWTSecret.
func TokenManager(t testing.TB) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(TestJWTSecret, time.Hour, true, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return tm
}

// BearerFor issues a token for user and sets it on the request.
func BearerFor(t testing.TB, tm *auth.TokenManager, r *http.Request, user TestUser) *http.Request {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		t.Fatalf("invalid test user id %q: %v", user.ID, err)
	}
	tok, _, err := tm.Issue(oid, user.Username, user.Role)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	r.Header.Set("Authorization", "Bearer "+tok)
	return r
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates an HTTP request with body marshaled as JSON.
func NewJSONRequest(t testing.TB, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON unmarshals the response body into v.
func (r *ResponseRecorder) DecodeJSON(t interface{ Fatalf(string, ...any) }, v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response body %q: %v", r.Body.String(), err)
	}
}
