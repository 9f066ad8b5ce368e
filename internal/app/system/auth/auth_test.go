package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "this-is-a-32-character-long-key!"

func TestNewTokenManager(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		secret  string
		strict  bool
		wantErr bool
	}{
		{"valid secret dev", testSecret, false, false},
		{"valid secret prod", testSecret, true, false},
		{"empty secret", "", false, true},
		{"weak secret dev", "short", false, false}, // Warning but allowed in dev
		{"weak secret prod", "short", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := NewTokenManager(tt.secret, time.Hour, tt.strict, logger)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTokenManager() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *SecretConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error type = %T, want *SecretConfigError", err)
				}
				return
			}
			if tm.TTL() != time.Hour {
				t.Errorf("TTL = %v, want 1h", tm.TTL())
			}
		})
	}
}

func TestIssueAndParse(t *testing.T) {
	tm, err := NewTokenManager(testSecret, 24*time.Hour, true, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}

	id := primitive.NewObjectID()
	token, expires, err := tm.Issue(id, "admin", "admin")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if d := time.Until(expires); d < 23*time.Hour || d > 24*time.Hour {
		t.Errorf("expires in %v, want about 24h", d)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != id.Hex() {
		t.Errorf("UserID = %q, want %q", claims.UserID, id.Hex())
	}
	if claims.Role != "admin" || claims.Username != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParse_Rejects(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, time.Hour, true, zap.NewNop())
	other, _ := NewTokenManager("another-32-character-long-secret", time.Hour, true, zap.NewNop())
	expired, _ := NewTokenManager(testSecret, time.Nanosecond, true, zap.NewNop())

	foreign, _, _ := other.Issue(primitive.NewObjectID(), "x", "admin")
	stale, _, _ := expired.Issue(primitive.NewObjectID(), "x", "admin")
	time.Sleep(10 * time.Millisecond)

	for name, tok := range map[string]string{
		"garbage":     "not-a-token",
		"wrong key":   foreign,
		"expired":     stale,
		"empty token": "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := tm.Parse(tok); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm, _ := NewTokenManager(testSecret, time.Hour, true, zap.NewNop())
	adminTok, _, _ := tm.Issue(primitive.NewObjectID(), "boss", "admin")
	editorTok, _, _ := tm.Issue(primitive.NewObjectID(), "ed", "editor")

	var seen *AdminUser
	handler := tm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + editorTok, http.StatusForbidden},
		{"admin", "Bearer " + adminTok, http.StatusOK},
		{"scheme case-insensitive", "bearer " + adminTok, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/create-blogs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && (seen == nil || seen.Username != "boss") {
				t.Errorf("CurrentUser = %+v, want boss", seen)
			}
		})
	}
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := CurrentUser(req); ok {
		t.Error("CurrentUser should be absent")
	}

	id := primitive.NewObjectID()
	req = WithTestUser(req, &AdminUser{ID: id.Hex(), Role: "admin"})
	u, ok := CurrentUser(req)
	if !ok {
		t.Fatal("CurrentUser missing")
	}
	if u.UserID() != id {
		t.Errorf("UserID = %v, want %v", u.UserID(), id)
	}
	if (&AdminUser{ID: "bad"}).UserID() != primitive.NilObjectID {
		t.Error("invalid ID should give NilObjectID")
	}
}

func TestDenyAll(t *testing.T) {
	called := false
	h := DenyAll(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/create-blogs", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("next handler should not run")
	}
}
