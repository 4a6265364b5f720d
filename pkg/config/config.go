package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Snapshot database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	AppName   string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Source    SourceConfig
	Snapshot  SnapshotConfig
	Dashboard DashboardConfig
	Exports   ExportsConfig
	Refresh   RefreshConfig
	Auth      AuthConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SourceConfig describes the remote tier of the submission provider chain.
type SourceConfig struct {
	ScriptURL         string
	WriteBack         bool
	Timeout           time.Duration
	SheetsID          string
	SheetsRange       string
	SheetsAPIKey      string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRefreshToken string
	UseBundledSamples bool
}

// SnapshotConfig toggles the cache tier.
type SnapshotConfig struct {
	Enabled bool
}

// DashboardConfig governs the submission view cache.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportsConfig configures stored exports and their signed download links.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// RefreshConfig schedules periodic reloads. Zero disables the ticker.
type RefreshConfig struct {
	Interval    time.Duration
	OnStartup   bool
	QueueBuffer int
}

// AuthConfig holds the shared staff password.
type AuthConfig struct {
	StaffPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.AppName = v.GetString("APP_NAME")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Source = SourceConfig{
		ScriptURL:         v.GetString("SCRIPT_URL"),
		WriteBack:         v.GetBool("SCRIPT_WRITE_BACK"),
		Timeout:           parseDuration(v.GetString("SOURCE_TIMEOUT"), 15*time.Second),
		SheetsID:          v.GetString("SHEETS_SPREADSHEET_ID"),
		SheetsRange:       v.GetString("SHEETS_RANGE"),
		SheetsAPIKey:      v.GetString("SHEETS_API_KEY"),
		OAuthClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		OAuthClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		OAuthRefreshToken: v.GetString("GOOGLE_REFRESH_TOKEN"),
		UseBundledSamples: v.GetBool("USE_SAMPLE_DATA"),
	}

	cfg.Snapshot = SnapshotConfig{Enabled: v.GetBool("SNAPSHOT_ENABLED")}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("DASHBOARD_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Refresh = RefreshConfig{
		Interval:    parseDuration(v.GetString("REFRESH_INTERVAL"), 0),
		OnStartup:   v.GetBool("REFRESH_ON_STARTUP"),
		QueueBuffer: v.GetInt("REFRESH_QUEUE_BUFFER"),
	}

	cfg.Auth = AuthConfig{StaffPassword: v.GetString("STAFF_PASSWORD")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("APP_NAME", "shortcourse-api")
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "shortcourse")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "./data/submissions.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCRIPT_URL", "")
	v.SetDefault("SCRIPT_WRITE_BACK", false)
	v.SetDefault("SOURCE_TIMEOUT", "15s")
	v.SetDefault("SHEETS_SPREADSHEET_ID", "")
	v.SetDefault("SHEETS_RANGE", "Form Responses 1")
	v.SetDefault("USE_SAMPLE_DATA", true)

	v.SetDefault("SNAPSHOT_ENABLED", true)

	v.SetDefault("DASHBOARD_CACHE_ENABLED", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "2m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("REFRESH_INTERVAL", "")
	v.SetDefault("REFRESH_ON_STARTUP", true)
	v.SetDefault("REFRESH_QUEUE_BUFFER", 4)

	v.SetDefault("STAFF_PASSWORD", "password")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
