// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/vicarhk/vicarapi/internal/app/system/apicors"
	"github.com/vicarhk/vicarapi/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "VICAR"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: VICAR_MONGO_URI, VICAR_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "vicar", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: "", Desc: "Secret for signing admin access tokens (required in production)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Admin access token lifetime"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./vicar_data", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/vicar_data", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	{Name: "public_base_url", Default: "", Desc: "Base URL for media links (blank uses the request host)"},

	// Upload limits
	{Name: "max_upload_size", Default: 50 << 20, Desc: "Maximum upload size per file in bytes"},
	{Name: "max_upload_files", Default: 10, Desc: "Maximum files per multi-file upload"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@example.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ViCAR Premium Mobility", Desc: "From display name"},
	{Name: "contact_mail_to", Default: "", Desc: "Comma separated recipients of contact enquiries"},

	// Rate limiting
	{Name: "contact_rate_limit_max", Default: 3, Desc: "Contact form submissions per IP per window"},
	{Name: "contact_rate_limit_window", Default: "5m", Desc: "Contact form rate limit window"},
	{Name: "login_rate_limit_max", Default: 5, Desc: "Failed admin logins per username per window"},
	{Name: "login_rate_limit_window", Default: "15m", Desc: "Admin login rate limit window"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Sign-in event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Account event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "How long audit events are kept (0 keeps them forever)"},

	// Admin seeding configuration
	{Name: "seed_admin_username", Default: "", Desc: "Username of the admin created when none exists"},
	{Name: "seed_admin_password", Default: "", Desc: "Password of the admin created when none exists"},

	{Name: "cors_origins", Default: "", Desc: "Comma separated origins allowed on /api (blank allows any)"},

	// Timeouts
	{Name: "request_timeout", Default: "2m", Desc: "Whole-request timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document database operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list and search database operations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, VICAR_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		PublicBaseURL: strings.TrimRight(appValues.String("public_base_url"), "/"),

		MaxUploadSize:  int64(appValues.Int("max_upload_size")),
		MaxUploadFiles: appValues.Int("max_upload_files"),

		// Email/SMTP
		MailSMTPHost:  appValues.String("mail_smtp_host"),
		MailSMTPPort:  appValues.Int("mail_smtp_port"),
		MailSMTPUser:  appValues.String("mail_smtp_user"),
		MailSMTPPass:  appValues.String("mail_smtp_pass"),
		MailFrom:      appValues.String("mail_from"),
		MailFromName:  appValues.String("mail_from_name"),
		ContactMailTo: splitList(appValues.String("contact_mail_to")),

		// Rate limiting
		ContactRateLimitMax:    appValues.Int("contact_rate_limit_max"),
		ContactRateLimitWindow: appValues.Duration("contact_rate_limit_window", 5*time.Minute),
		LoginRateLimitMax:      appValues.Int("login_rate_limit_max"),
		LoginRateLimitWindow:   appValues.Duration("login_rate_limit_window", 15*time.Minute),

		// Audit logging
		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditRetention: appValues.Duration("audit_retention", 90*24*time.Hour),

		// Admin seeding
		SeedAdminUsername: appValues.String("seed_admin_username"),
		SeedAdminPassword: appValues.String("seed_admin_password"),

		CORSOrigins: apicors.ParseOrigins(appValues.String("cors_origins")),

		// Timeouts
		RequestTimeout: appValues.Duration("request_timeout", 2*time.Minute),
		TimeoutShort:   appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium:  appValues.Duration("timeout_medium", 10*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" {
		if coreCfg.Env == "prod" {
			return errors.New("jwt_secret is required in production")
		}
		logger.Warn("jwt_secret is not set; admin login will fail until it is configured")
	}

	if appCfg.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %d", appCfg.MaxUploadSize)
	}

	if appCfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", appCfg.RequestTimeout)
	}

	switch appCfg.StorageType {
	case "", "local", "s3":
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}

	for name, mode := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch mode {
		case "", auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("%s must be all, db, log or off, got %q", name, mode)
		}
	}

	if len(appCfg.ContactMailTo) == 0 {
		logger.Warn("contact_mail_to is not set; contact enquiries go to mail_from",
			zap.String("mail_from", appCfg.MailFrom))
	}

	return nil
}

// splitList splits a comma separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
