// Package adminauth signs admins in with a bearer token and lets an admin
// create further console accounts.
package adminauth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	"github.com/vicarhk/vicarapi/internal/app/store/ratelimit"
	userstore "github.com/vicarhk/vicarapi/internal/app/store/users"
	"github.com/vicarhk/vicarapi/internal/app/system/auditlog"
	"github.com/vicarhk/vicarapi/internal/app/system/auth"
	"github.com/vicarhk/vicarapi/internal/app/system/authutil"
	"github.com/vicarhk/vicarapi/internal/app/system/inputval"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/throttle"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.uber.org/zap"
)

const loginScope = "login"

// Handler provides admin login and account creation.
type Handler struct {
	users  *userstore.Store
	tokens *auth.TokenManager
	limits *ratelimit.Store // nil disables login throttling
	policy ratelimit.Policy
	audit  *auditlog.Logger
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an adminauth Handler. Failed logins per username are
// limited by policy when limits is non-nil. Sign-ins and account creation
// are recorded to auditLog.
func NewHandler(users *userstore.Store, tokens *auth.TokenManager, limits *ratelimit.Store, policy ratelimit.Policy, auditLog *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		users:  users,
		tokens: tokens,
		limits: limits,
		policy: policy,
		audit:  auditLog,
		errLog: errLog,
		logger: logger,
		now:    time.Now,
	}
}

type loginInput struct {
	Username string `json:"username" validate:"required" label:"Username"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type userView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

func toView(u *models.AdminUser) userView {
	return userView{
		ID:          u.ID.Hex(),
		Username:    u.Username,
		Role:        u.Role,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
	}
}

// Login handles POST /adminLogin.
//
// Wrong usernames and wrong passwords get the same 400. Each failure counts
// against the username; once the window's budget is spent further attempts
// are refused with 429 until it resets. A successful login clears the count.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		jsonutil.Unavailable(w, "Admin login is not configured")
		return
	}
	var in loginInput
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.BadRequest(w, "Invalid credentials", res.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "admin login")
	defer cancel()

	key := ratelimit.Key(loginScope, in.Username)
	if h.limits != nil {
		d, err := h.limits.Peek(ctx, key, h.policy)
		if err != nil {
			h.logger.Warn("login rate limit check failed", zap.Error(err))
		}
		if !d.Allowed {
			h.logger.Warn("login refused: too many failures", zap.String("username", in.Username))
			h.audit.LoginRateLimited(ctx, r, in.Username)
			h.tooMany(w, d)
			return
		}
	}

	u, err := h.users.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		h.writeStoreError(w, r, "Login failed", err)
		return
	}
	if u == nil {
		h.recordFailure(r, key, in.Username, "unknown user")
		jsonutil.BadRequest(w, "Invalid credentials", "The username or password is incorrect")
		return
	}
	if !authutil.CheckPassword(in.Password, u.PasswordHash) {
		h.recordFailure(r, key, in.Username, "wrong password")
		jsonutil.BadRequest(w, "Invalid credentials", "The username or password is incorrect")
		return
	}

	if h.limits != nil {
		if err := h.limits.Reset(ctx, key); err != nil {
			h.logger.Warn("login rate limit reset failed", zap.Error(err))
		}
	}

	token, expires, err := h.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		h.errLog.Log(r, "failed to issue token", err)
		jsonutil.InternalError(w, "Could not sign in, please try again")
		return
	}

	h.logger.Info("admin signed in", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
	h.audit.LoginSuccess(ctx, r, u.ID, u.Username)
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token,
		"expiresAt": expires.UTC(),
		"user":      toView(u),
	})
}

func (h *Handler) recordFailure(r *http.Request, key, username, reason string) {
	h.logger.Info("admin login failed", zap.String("username", username))
	h.audit.LoginFailed(r.Context(), r, username, reason)
	if h.limits == nil {
		return
	}
	if _, err := h.limits.Hit(r.Context(), key, h.policy); err != nil {
		h.logger.Warn("login failure not recorded", zap.Error(err))
	}
}

func (h *Handler) tooMany(w http.ResponseWriter, d ratelimit.Decision) {
	now := h.now()
	throttle.WriteHeaders(w, d, now)
	throttle.TooManyRequests(w, d, now, "Too many login attempts",
		"Please wait "+throttle.Describe(h.policy.Window)+" before trying again")
}

type createAccountInput struct {
	Username    string `json:"username" validate:"required,max=64" label:"Username"`
	Password    string `json:"password" validate:"required" label:"Password"`
	Email       string `json:"email" label:"Email"`
	Role        string `json:"role" label:"Role"`
	FirstName   string `json:"firstName" validate:"max=100" label:"First name"`
	LastName    string `json:"lastName" validate:"max=100" label:"Last name"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32" label:"Phone number"`
}

// CreateAccount handles POST /createAccount (admin only).
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in createAccountInput
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if res := inputval.Validate(in); res.HasErrors() {
		jsonutil.ValidationError(w, res.Fields())
		return
	}
	if in.Email != "" && !inputval.IsValidEmail(in.Email) {
		jsonutil.ValidationError(w, map[string]string{"email": "Please enter a valid email address."})
		return
	}
	if in.Role != "" && !models.IsValidRole(strings.ToLower(in.Role)) {
		jsonutil.ValidationError(w, map[string]string{"role": "Role must be one of: " + strings.Join(models.AllRoles(), ", ") + "."})
		return
	}
	if err := authutil.ValidatePassword(in.Username, in.Password); err != nil {
		jsonutil.ValidationError(w, map[string]string{"password": err.Error()})
		return
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		jsonutil.InternalError(w, "Failed to create user")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "create account")
	defer cancel()

	u, err := h.users.Create(ctx, models.AdminUser{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Role:         in.Role,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
	})
	if err != nil {
		h.writeStoreError(w, r, "Failed to create user", err)
		return
	}

	actor := ""
	if cu, ok := auth.CurrentUser(r); ok {
		actor = cu.Username
		h.audit.UserCreated(ctx, r, cu.UserID(), u.ID, u.Username, u.Role)
	}
	h.logger.Info("admin account created",
		zap.String("user_id", u.ID.Hex()),
		zap.String("username", u.Username),
		zap.String("role", u.Role),
		zap.String("created_by", actor))
	jsonutil.Created(w, "User created successfully", toView(&u))
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, failMsg string, err error) {
	switch {
	case errors.Is(err, userstore.ErrDuplicateUsername):
		jsonutil.Conflict(w, "Duplicate entry", "Username already exists")
	case errors.Is(err, userstore.ErrStorageUnavailable):
		h.errLog.Log(r, "user storage unavailable", err)
		jsonutil.Unavailable(w, "The database is unavailable, please retry shortly")
	default:
		h.errLog.Log(r, failMsg, err)
		jsonutil.Fail(w, http.StatusInternalServerError, failMsg, "An unexpected error occurred")
	}
}
