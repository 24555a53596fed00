package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Attributes AttributesConfig
	Renderer   RendererConfig
	Reports    ReportsConfig
	Templates  TemplatesConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttributesConfig holds the process-wide secret used to seal sensitive
// attribute values before they hit the database.
type AttributesConfig struct {
	EncryptionKey string
}

// RendererConfig points at the external HTML to PDF rendering service.
// When ServiceURL is empty a local gofpdf fallback is used instead.
type RendererConfig struct {
	ServiceURL      string
	Timeout         time.Duration
	PoolSize        int
	PageFormat      string
	MarginTop       string
	MarginBottom    string
	MarginLeft      string
	MarginRight     string
	PrintBackground bool
}

// ReportsConfig configures report artifact storage and the generation workers.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	ArtifactTTL       time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// TemplatesConfig tunes the template registry cache.
type TemplatesConfig struct {
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Attributes = AttributesConfig{
		EncryptionKey: v.GetString("ATTRIBUTE_ENCRYPTION_KEY"),
	}

	cfg.Renderer = RendererConfig{
		ServiceURL:      v.GetString("RENDERER_SERVICE_URL"),
		Timeout:         parseDuration(v.GetString("RENDERER_TIMEOUT"), 30*time.Second),
		PoolSize:        v.GetInt("RENDERER_POOL_SIZE"),
		PageFormat:      v.GetString("RENDERER_PAGE_FORMAT"),
		MarginTop:       v.GetString("RENDERER_MARGIN_TOP"),
		MarginBottom:    v.GetString("RENDERER_MARGIN_BOTTOM"),
		MarginLeft:      v.GetString("RENDERER_MARGIN_LEFT"),
		MarginRight:     v.GetString("RENDERER_MARGIN_RIGHT"),
		PrintBackground: v.GetBool("RENDERER_PRINT_BACKGROUND"),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		ArtifactTTL:       parseDuration(v.GetString("REPORTS_ARTIFACT_TTL"), 90*24*time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Templates = TemplatesConfig{
		CacheTTL: parseDuration(v.GetString("TEMPLATES_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "student-records-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTRIBUTE_ENCRYPTION_KEY", "")

	v.SetDefault("RENDERER_SERVICE_URL", "")
	v.SetDefault("RENDERER_TIMEOUT", "30s")
	v.SetDefault("RENDERER_POOL_SIZE", 2)
	v.SetDefault("RENDERER_PAGE_FORMAT", "A4")
	v.SetDefault("RENDERER_MARGIN_TOP", "10mm")
	v.SetDefault("RENDERER_MARGIN_BOTTOM", "10mm")
	v.SetDefault("RENDERER_MARGIN_LEFT", "10mm")
	v.SetDefault("RENDERER_MARGIN_RIGHT", "10mm")
	v.SetDefault("RENDERER_PRINT_BACKGROUND", true)

	v.SetDefault("REPORTS_STORAGE_DIR", "./reports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_ARTIFACT_TTL", "2160h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 2)
	v.SetDefault("REPORTS_WORKER_RETRIES", 1)

	v.SetDefault("TEMPLATES_CACHE_TTL", "10m")
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
