package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Remote
		Token
		Sync
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path     string
		LogLevel string // silent, error, warn, info
	}
	Remote struct {
		BaseURL    string
		Timeout    time.Duration
		MaxRetries int
		RateLimit  float64 // requests per second, 0 disables
	}
	Token struct {
		AccessToken   string // overrides the stored token when set
		EncryptionKey string
		KeyFilePath   string // used when EncryptionKey is empty
	}
	Sync struct {
		PageSize          int
		Sort              string // newest, oldest
		Workers           int
		RefreshEnabled    bool
		RefreshSchedule   string // Cron format: "*/30 * * * *" = every 30 minutes
		OutboxMaxAttempts int
		PurgeAfter        time.Duration
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	return newConfig(viper.New())
}

func newConfig(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_log_level", "warn")

	// Remote service defaults
	v.SetDefault("remote_base_url", DefaultRemoteBaseURL)
	v.SetDefault("remote_timeout", "30s")
	v.SetDefault("remote_max_retries", 3)
	v.SetDefault("remote_rate_limit", 10)

	v.SetDefault("access_token", "")
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_key_file", "")

	// Sync defaults
	v.SetDefault("sync_page_size", 30)
	v.SetDefault("sync_sort", "newest")
	v.SetDefault("sync_workers", 4)
	v.SetDefault("sync_refresh_enabled", true)
	v.SetDefault("sync_refresh_schedule", "*/30 * * * *")
	v.SetDefault("sync_outbox_max_attempts", 5)
	v.SetDefault("sync_purge_after", "72h")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "6h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:     v.GetString("DATABASE_PATH"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Remote: Remote{
			BaseURL:    v.GetString("REMOTE_BASE_URL"),
			Timeout:    v.GetDuration("REMOTE_TIMEOUT"),
			MaxRetries: v.GetInt("REMOTE_MAX_RETRIES"),
			RateLimit:  v.GetFloat64("REMOTE_RATE_LIMIT"),
		},
		Token: Token{
			AccessToken:   v.GetString("ACCESS_TOKEN"),
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFilePath:   v.GetString("TOKEN_KEY_FILE"),
		},
		Sync: Sync{
			PageSize:          v.GetInt("SYNC_PAGE_SIZE"),
			Sort:              v.GetString("SYNC_SORT"),
			Workers:           v.GetInt("SYNC_WORKERS"),
			RefreshEnabled:    v.GetBool("SYNC_REFRESH_ENABLED"),
			RefreshSchedule:   v.GetString("SYNC_REFRESH_SCHEDULE"),
			OutboxMaxAttempts: v.GetInt("SYNC_OUTBOX_MAX_ATTEMPTS"),
			PurgeAfter:        v.GetDuration("SYNC_PURGE_AFTER"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}
