// Package config loads the environment surface documented in spec §6. Plain
// scalars use the teacher's getEnv helper; the larger set of feature flags
// and the backup group are bound through viper so defaults and env-var
// overrides live in one declarative place.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type BackupConfig struct {
	Enabled              bool
	IntervalHours        int
	RetentionDays        int
	Path                 string
	CompressThresholdMB  int
	OffsiteUploadEnabled bool
}

type FeatureFlags struct {
	ParseTracing         bool
	ParseTraceVerbose    bool
	MobilePhotoUpload    bool
	MobilePhotoMaxSizeMB int
	PipelineV2Enabled    bool
}

type Config struct {
	Port          string
	JWTSecret     string
	JWTExpiresIn  string
	AdminPassword string
	NodeEnv       string
	DataDir       string
	UploadsDir    string

	DBPath string

	EmailEncryptionKey string

	Backup   BackupConfig
	Features FeatureFlags
}

var AppConfig *Config

// Load reads the environment surface (§6) into a Config. viper carries the
// defaults for the backup group and feature flags; PORT/JWT/data-dir remain
// plain getEnv lookups in the teacher's original style.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_backup_enabled", false)
	v.SetDefault("database_backup_interval_hours", 24)
	v.SetDefault("database_backup_retention_days", 30)
	v.SetDefault("database_backup_path", "./backups")
	v.SetDefault("database_backup_compress_threshold_mb", 5)
	v.SetDefault("database_backup_offsite_enabled", false)

	v.SetDefault("parse_tracing", true)
	v.SetDefault("parse_trace_verbose", false)
	v.SetDefault("enable_mobile_photo_upload", true)
	v.SetDefault("mobile_photo_max_size_mb", 20)
	v.SetDefault("pipeline_v2_enabled", false)

	cfg := &Config{
		Port:          getEnv("PORT", "3001"),
		JWTSecret:     getJWTSecret(),
		JWTExpiresIn:  getEnv("JWT_EXPIRES_IN", "168h"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		NodeEnv:       getEnv("NODE_ENV", "development"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		UploadsDir:    getEnv("UPLOADS_DIR", "./uploads"),

		DBPath: firstNonEmpty(os.Getenv("DB_PATH"), os.Getenv("DATABASE_PATH")),

		EmailEncryptionKey: os.Getenv("EMAIL_ENCRYPTION_KEY"),

		Backup: BackupConfig{
			Enabled:              v.GetBool("database_backup_enabled"),
			IntervalHours:        v.GetInt("database_backup_interval_hours"),
			RetentionDays:        v.GetInt("database_backup_retention_days"),
			Path:                 v.GetString("database_backup_path"),
			CompressThresholdMB:  v.GetInt("database_backup_compress_threshold_mb"),
			OffsiteUploadEnabled: v.GetBool("database_backup_offsite_enabled"),
		},
		Features: FeatureFlags{
			ParseTracing:         v.GetBool("parse_tracing"),
			ParseTraceVerbose:    v.GetBool("parse_trace_verbose"),
			MobilePhotoUpload:    v.GetBool("enable_mobile_photo_upload"),
			MobilePhotoMaxSizeMB: v.GetInt("mobile_photo_max_size_mb"),
			PipelineV2Enabled:    v.GetBool("pipeline_v2_enabled"),
		},
	}

	AppConfig = cfg
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret != "" {
		return secret
	}

	if os.Getenv("NODE_ENV") == "production" {
		log.Println("WARNING: JWT_SECRET not set in production. Using generated secret (will change on restart).")
	}

	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("Failed to generate JWT secret:", err)
	}
	return hex.EncodeToString(bytes)
}

// LockTTL is the MonitorLock expiry duration (§3, §5): 5 minutes, fixed.
const LockTTL = 5 * time.Minute
