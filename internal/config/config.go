package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	DynamoTables   DynamoTables
	S3BucketName   string
	EmailTemplateKey string

	AuditTopicARN string
	GrantTopicARN string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiryDays     int

	// OwnerKeyHash is the bcrypt hash of the owner API key gating the global
	// blocked-domain administration endpoints. Generate with cmd/ownerkey-gen.
	OwnerKeyHash string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// Verification timing. SessionTTL is the user-facing expiry enforced at
	// submit time; SweepThreshold is the looser storage bound enforced by the
	// periodic sweep; ResendCooldown gates re-requests. Three independent knobs.
	SessionTTL     time.Duration
	ResendCooldown time.Duration
	SweepThreshold time.Duration
	SweepInterval  time.Duration
	MaxAttempts    int
	MinAccountAge  time.Duration

	RaidWindow    time.Duration
	RaidThreshold int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Sessions          string
	VerifiedMembers   string
	CommunitySettings string
	BlockedDomains    string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DynamoTables: DynamoTables{
			Sessions:          getEnv("DYNAMO_TABLE_SESSIONS", "verification_sessions"),
			VerifiedMembers:   getEnv("DYNAMO_TABLE_VERIFIED_MEMBERS", "verified_members"),
			CommunitySettings: getEnv("DYNAMO_TABLE_COMMUNITY_SETTINGS", "community_settings"),
			BlockedDomains:    getEnv("DYNAMO_TABLE_BLOCKED_DOMAINS", "blocked_domains"),
		},
		S3BucketName:     getEnv("S3_BUCKET_NAME", "gatekeeper-assets"),
		EmailTemplateKey: getEnv("EMAIL_TEMPLATE_KEY", "templates/email_template.html"),

		AuditTopicARN: getEnv("AUDIT_TOPIC_ARN", ""),
		GrantTopicARN: getEnv("GRANT_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 7),

		OwnerKeyHash: getEnv("OWNER_KEY_HASH", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SessionTTL:     getEnvSeconds("SESSION_TTL_SECONDS", 600),
		ResendCooldown: getEnvSeconds("RESEND_COOLDOWN_SECONDS", 300),
		SweepThreshold: getEnvSeconds("SWEEP_THRESHOLD_SECONDS", 3600),
		SweepInterval:  getEnvSeconds("SWEEP_INTERVAL_SECONDS", 600),
		MaxAttempts:    getEnvInt("MAX_ATTEMPTS", 3),
		MinAccountAge:  getEnvSeconds("MIN_ACCOUNT_AGE_SECONDS", 86400),

		RaidWindow:    getEnvSeconds("RAID_WINDOW_SECONDS", 60),
		RaidThreshold: getEnvInt("RAID_THRESHOLD", 15),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
