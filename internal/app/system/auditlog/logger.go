// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/vicarhk/vicarapi/internal/app/store/audit"
	"github.com/vicarhk/vicarapi/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for audit events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login events. Admin controls account management events.
	Auth  string
	Admin string
}

// Recorder is where events go when they are written to the database.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to MongoDB and structured logs.
// A nil *Logger is valid and records nothing.
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", event.Username))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event according to the mode configured for its category.
// Unknown or blank modes log everywhere. Database failures are logged and
// swallowed so auditing never fails a request.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var mode string
	switch event.Category {
	case audit.CategoryAuth:
		mode = l.config.Auth
	case audit.CategoryAdmin:
		mode = l.config.Admin
	}
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful admin login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Username = username
	e.Success = true
	l.Log(ctx, e)
}

// LoginFailed logs a rejected login. reason is never sent to the client.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, username, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailed)
	e.Username = username
	e.FailureReason = reason
	l.Log(ctx, e)
}

// LoginRateLimited logs a login refused because the username is throttled.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginRateLimited)
	e.Username = username
	e.FailureReason = "too many failed attempts"
	l.Log(ctx, e)
}

// --- Admin Events ---

// UserCreated logs an admin account created by another admin.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, username, role string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserCreated)
	e.ActorID = &actorID
	e.UserID = &userID
	e.Username = username
	e.Success = true
	e.Details = map[string]string{"role": role}
	l.Log(ctx, e)
}
