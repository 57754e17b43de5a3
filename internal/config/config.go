package config

import (
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	TablePrefix string

	// Document store
	StoreBackend string
	DatabaseURL  string
	BadgerDir    string

	// File content
	ContentBackend string
	ContentDir     string
	ContentBaseURL string
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool

	// Conversion
	ConverterURL      string
	ConversionWorkers int

	// Identity provider
	JWKSURL        string
	AuthAdminURL   string
	AuthServiceKey string

	CORSOrigins string
	LogDir      string
	LogMaxFiles int

	// Debug enables verbose logging.
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	port := getEnv("PORT", "8080")

	return &Config{
		Port:        port,
		Environment: env,
		TablePrefix: getTablePrefix(env),

		StoreBackend: getEnv("STORE_BACKEND", StoreMemory),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		BadgerDir:    getEnv("BADGER_DIR", "./data/badger"),

		ContentBackend: getEnv("CONTENT_BACKEND", "local"),
		ContentDir:     getEnv("CONTENT_DIR", "./data/content"),
		ContentBaseURL: getEnv("CONTENT_BASE_URL", "http://localhost:"+port+"/content"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:       getEnv("S3_USE_SSL", "true") == "true",

		ConverterURL:      getEnv("CONVERTER_URL", ""),
		ConversionWorkers: getInt("CONVERSION_WORKERS", 2),

		JWKSURL:        getEnv("JWKS_URL", ""),
		AuthAdminURL:   getEnv("AUTH_ADMIN_URL", ""),
		AuthServiceKey: getEnv("AUTH_SERVICE_KEY", ""),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),

		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.Environment, validation.In("dev", "test", "prod")),
		validation.Field(&c.StoreBackend, validation.Required, validation.In(StoreMemory, StoreBadger, StorePostgres)),
		validation.Field(&c.DatabaseURL, validation.When(c.StoreBackend == StorePostgres, validation.Required)),
		validation.Field(&c.BadgerDir, validation.When(c.StoreBackend == StoreBadger, validation.Required)),
		validation.Field(&c.ContentBackend, validation.Required, validation.In("local", "s3", "minio")),
		validation.Field(&c.ContentDir, validation.When(c.ContentBackend == "local", validation.Required)),
		validation.Field(&c.S3Bucket, validation.When(c.ContentBackend != "local", validation.Required)),
		validation.Field(&c.S3Endpoint, validation.When(c.ContentBackend == "minio", validation.Required)),
		validation.Field(&c.ConverterURL, is.URL),
		validation.Field(&c.ConversionWorkers, validation.Min(1)),
		validation.Field(&c.JWKSURL, validation.Required, is.URL),
		validation.Field(&c.AuthServiceKey, validation.When(c.AuthAdminURL != "", validation.Required)),
		validation.Field(&c.LogMaxFiles, validation.Min(1)),
	)
}

// Origins splits CORSOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
