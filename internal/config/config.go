package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Blob backends.
const (
	BlobFirebase = "firebase"
	BlobS3       = "s3"
	BlobMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseStorageBucket            string `mapstructure:"FIREBASE_STORAGE_BUCKET"`
	TripID                           string `mapstructure:"TRIP_ID"`
	ServiceIdentityUID               string `mapstructure:"SERVICE_IDENTITY_UID"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	BlobBackend  string `mapstructure:"BLOB_BACKEND"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3AccessKey       string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey       string `mapstructure:"S3_SECRET_KEY"`
	BlobPublicBaseURL string `mapstructure:"BLOB_PUBLIC_BASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"` // Empty disables the local field cache
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AMQPURL   string `mapstructure:"AMQP_URL"` // Empty disables change events
	AMQPQueue string `mapstructure:"AMQP_QUEUE"`

	DefaultAvatarURL string `mapstructure:"DEFAULT_AVATAR_URL"` // "{seed}" is replaced by the member name

	ConnectivityProbeInterval time.Duration `mapstructure:"CONNECTIVITY_PROBE_INTERVAL"`
	SyncDelay                 time.Duration `mapstructure:"SYNC_DELAY"`
	HideDelay                 time.Duration `mapstructure:"HIDE_DELAY"`

	AuthDisabled bool `mapstructure:"AUTH_DISABLED"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "CLIENT_URL",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"FIREBASE_STORAGE_BUCKET", "TRIP_ID", "SERVICE_IDENTITY_UID",
	"STORE_BACKEND", "BLOB_BACKEND",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "BLOB_PUBLIC_BASE_URL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"AMQP_URL", "AMQP_QUEUE",
	"DEFAULT_AVATAR_URL",
	"CONNECTIVITY_PROBE_INTERVAL", "SYNC_DELAY", "HIDE_DELAY",
	"AUTH_DISABLED",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("TRIP_ID", models.DefaultTripID)
	v.SetDefault("SERVICE_IDENTITY_UID", "nordictrip-sync-server")
	v.SetDefault("STORE_BACKEND", StoreFirestore)
	v.SetDefault("BLOB_BACKEND", BlobFirebase)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AMQP_QUEUE", "nordictrip.field-changed")
	v.SetDefault("DEFAULT_AVATAR_URL", "https://api.dicebear.com/7.x/avataaars/svg?seed={seed}")
	v.SetDefault("CONNECTIVITY_PROBE_INTERVAL", "5s")
	v.SetDefault("SYNC_DELAY", "1000ms")
	v.SetDefault("HIDE_DELAY", "1200ms")
	v.SetDefault("AUTH_DISABLED", false)

	// Bind environment variables
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	cfg.BlobBackend = strings.ToLower(cfg.BlobBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NeedsFirebase reports whether any selected component talks to Firebase.
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == StoreFirestore || c.BlobBackend == BlobFirebase || !c.AuthDisabled
}

// Validate checks the backend selection and the settings each backend requires.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFirestore, StoreMemory, c.StoreBackend)
	}
	switch c.BlobBackend {
	case BlobFirebase, BlobS3, BlobMemory:
	default:
		return fmt.Errorf("BLOB_BACKEND must be %q, %q or %q, got %q", BlobFirebase, BlobS3, BlobMemory, c.BlobBackend)
	}
	if c.TripID == "" {
		return errors.New("TRIP_ID must not be empty")
	}

	// Validate required fields
	if c.NeedsFirebase() {
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.GoogleApplicationCredentials == "" && c.FirebaseServiceAccountJSONBase64 == "" {
			return errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
		}
	}
	if c.BlobBackend == BlobFirebase && c.FirebaseStorageBucket == "" {
		return errors.New("FIREBASE_STORAGE_BUCKET is required for the firebase blob backend")
	}
	if c.BlobBackend == BlobS3 && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required for the s3 blob backend")
	}
	if c.ConnectivityProbeInterval <= 0 {
		return errors.New("CONNECTIVITY_PROBE_INTERVAL must be positive")
	}
	return nil
}
