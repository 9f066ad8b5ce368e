// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	tokenIssuer  = "vicarapi"
	minSecretLen = 32
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed with another key.
var ErrInvalidToken = errors.New("invalid or expired token")

/*─────────────────────────────────────────────────────────────────────────────*
| Tokens                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Claims is the payload of an admin access token.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 admin access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// SecretConfigError describes a problem with the configured signing secret.
type SecretConfigError struct {
	Message string
}

func (e *SecretConfigError) Error() string {
	return e.Message
}

// NewTokenManager creates a TokenManager.
//
// An empty secret is always an error. A short secret is only a warning in
// dev, but an error when strict is true (production).
func NewTokenManager(secret string, ttl time.Duration, strict bool, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, &SecretConfigError{Message: "jwt secret is required"}
	}
	if len(secret) < minSecretLen {
		if strict {
			return nil, &SecretConfigError{Message: fmt.Sprintf("jwt secret must be at least %d characters in production", minSecretLen)}
		}
		logger.Warn("jwt secret is shorter than recommended", zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, logger: logger}, nil
}

// TTL returns how long issued tokens stay valid.
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Issue signs a token for the given user.
func (tm *TokenManager) Issue(userID primitive.ObjectID, username, role string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(tm.ttl)
	claims := Claims{
		UserID:   userID.Hex(),
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its claims.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// AdminUser is the authenticated caller in the request context.
type AdminUser struct {
	ID       string
	Username string
	Role     string
}

// UserID returns the user's ID as an ObjectID.
// If the ID is invalid, returns a zero ObjectID.
func (u *AdminUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag from the request context.
func CurrentUser(r *http.Request) (*AdminUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*AdminUser)
	return u, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireRole returns middleware that accepts "Authorization: Bearer <token>"
// carrying one of the allowed roles.
//
// A missing or invalid token is 401; a valid token with another role is 403.
func (tm *TokenManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[normalize.Role(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				tm.logger.Debug("request rejected: missing bearer token",
					zap.String("path", r.URL.Path))
				jsonutil.Unauthorized(w, "Missing or malformed Authorization header")
				return
			}

			claims, err := tm.Parse(raw)
			if err != nil {
				tm.logger.Info("request rejected: invalid token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				jsonutil.Unauthorized(w, "Invalid or expired token")
				return
			}

			if _, has := set[normalize.Role(claims.Role)]; !has {
				tm.logger.Warn("request rejected: insufficient role",
					zap.String("path", r.URL.Path),
					zap.String("user_id", claims.UserID),
					zap.String("role", claims.Role))
				jsonutil.Forbidden(w, "You do not have permission to perform this action")
				return
			}

			u := &AdminUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
			next.ServeHTTP(w, withUser(r, u))
		})
	}
}

// DenyAll rejects every request with 401. It guards admin routes when no
// signing secret is configured.
func DenyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonutil.Unauthorized(w, "Admin access is not configured")
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

func withUser(r *http.Request, u *AdminUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects an AdminUser into the request context for testing.
func WithTestUser(r *http.Request, u *AdminUser) *http.Request {
	return withUser(r, u)
}
