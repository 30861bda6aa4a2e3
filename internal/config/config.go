package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full runtime configuration, loaded from CHOREKEEP_*
// environment variables.
type Config struct {
	Port     string `validate:"required,numeric"`
	DataDir  string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogJSON  bool

	// AuthSecret signs parent bearer tokens.
	AuthSecret string `validate:"required,min=16"`

	// SweepInterval is how often the overdue sweep and rollover run.
	SweepInterval time.Duration `validate:"min=1s"`

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string `validate:"omitempty,email"`

	// DashboardTemplateURL points at a published dashboard layout; empty
	// keeps the embedded template.
	DashboardTemplateURL string `validate:"omitempty,url"`

	Backup BackupConfig
}

// BackupConfig controls scheduled backups and the optional S3 offsite copy.
type BackupConfig struct {
	Enabled    bool
	Interval   time.Duration `validate:"min=1m"`
	Passphrase string

	// Retention caps per backup tag, applied after each scheduled run.
	// Zero keeps nothing: every backup of that tag is pruned.
	KeepScheduled int `validate:"gte=0"`
	KeepManual    int `validate:"gte=0"`

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("CHOREKEEP_PORT", "8090"),
		DataDir:       getEnv("CHOREKEEP_DATA_DIR", "data"),
		LogLevel:      getEnv("CHOREKEEP_LOG_LEVEL", "info"),
		LogJSON:       getBool("CHOREKEEP_LOG_JSON", false),
		AuthSecret:    getEnv("CHOREKEEP_AUTH_SECRET", ""),
		SweepInterval: getDuration("CHOREKEEP_SWEEP_INTERVAL", time.Minute),

		VAPIDPublicKey:  getEnv("CHOREKEEP_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("CHOREKEEP_VAPID_PRIVATE_KEY", ""),
		PushSubscriber:  getEnv("CHOREKEEP_PUSH_SUBSCRIBER", ""),

		DashboardTemplateURL: getEnv("CHOREKEEP_DASHBOARD_TEMPLATE_URL", ""),

		Backup: BackupConfig{
			Enabled:       getBool("CHOREKEEP_BACKUP_ENABLED", true),
			Interval:      getDuration("CHOREKEEP_BACKUP_INTERVAL", 24*time.Hour),
			Passphrase:    getEnv("CHOREKEEP_BACKUP_PASSPHRASE", ""),
			KeepScheduled: getInt("CHOREKEEP_BACKUP_KEEP_SCHEDULED", 7),
			KeepManual:    getInt("CHOREKEEP_BACKUP_KEEP_MANUAL", 5),
			S3Bucket:      getEnv("CHOREKEEP_S3_BUCKET", ""),
			S3Region:      getEnv("CHOREKEEP_S3_REGION", ""),
			S3Endpoint:    getEnv("CHOREKEEP_S3_ENDPOINT", ""),
			S3AccessKey:   getEnv("CHOREKEEP_S3_ACCESS_KEY", ""),
			S3SecretKey:   getEnv("CHOREKEEP_S3_SECRET_KEY", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Backup.S3Bucket != "" && (cfg.Backup.S3AccessKey == "" || cfg.Backup.S3SecretKey == "") {
		return nil, fmt.Errorf("invalid configuration: S3 bucket set without credentials")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
