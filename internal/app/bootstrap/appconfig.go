// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from environment variables (VICAR_*), configuration files, or
// command-line flags (loaded in LoadConfig). Framework settings such as
// ports, TLS, log level and global CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Admin access tokens
	JWTSecret string        // HS256 signing secret (required in production)
	JWTTTL    time.Duration // Token lifetime (default: 24h)

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./vicar_data")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/vicar_data")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageCFURL       string
	StorageCFKeyPairID string
	StorageCFKeyPath   string

	// PublicBaseURL prefixes relative media URLs. Blank means the request's host.
	PublicBaseURL string

	// Upload limits
	MaxUploadSize  int64 // Bytes per file (default: 50 MiB)
	MaxUploadFiles int   // Files per multi-upload request (default: 10)

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// ContactMailTo receives contact form enquiries.
	ContactMailTo []string

	// Rate limiting
	ContactRateLimitMax    int           // Contact submissions per IP per window (default: 3)
	ContactRateLimitWindow time.Duration // (default: 5m)
	LoginRateLimitMax      int           // Failed logins per username per window (default: 5)
	LoginRateLimitWindow   time.Duration // (default: 15m)

	// Audit logging: "all" (MongoDB + zap), "db", "log" or "off"
	AuditLogAuth   string        // Sign-in events
	AuditLogAdmin  string        // Account management events
	AuditRetention time.Duration // How long audit events are kept (0 keeps them forever)

	// Admin seeding, used only when no admin account exists
	SeedAdminUsername string
	SeedAdminPassword string

	// CORSOrigins lists origins allowed on /api. Empty allows any origin.
	CORSOrigins []string

	// Timeouts
	RequestTimeout time.Duration // Whole-request timeout (default: 2m, uploads included)
	TimeoutShort   time.Duration // Single-document reads and writes (default: 5s)
	TimeoutMedium  time.Duration // Listing and search (default: 10s)
}
