package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort string
	JWTSecret  string
	TokenTTL   time.Duration
	DBPath     string

	LogLevel string
	LogFile  string

	S3   S3Config
	SMTP SMTPConfig

	// Bulk-import credential mails are batched to respect the SMTP rate limit.
	ImportBatchSize  int
	ImportBatchDelay time.Duration

	SeedAdminEmail    string
	SeedAdminPassword string
}

type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Endpoint  string // optional, for MinIO-style S3-compatible stores
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads the configuration from the environment once at startup. The
// returned value is passed by reference into constructors; nothing else
// reads the environment.
func Load() *Config {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "3001"),
		JWTSecret:  getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 24*time.Hour),
		DBPath:     getEnv("DB_PATH", "/app/data/records.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
		S3: S3Config{
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Region:    getEnv("S3_REGION", "ap-south-1"),
			Bucket:    getEnv("S3_BUCKET", "student-records"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "no-reply@college.edu"),
		},
		ImportBatchSize:   getEnvInt("IMPORT_BATCH_SIZE", 10),
		ImportBatchDelay:  getEnvDuration("IMPORT_BATCH_DELAY", 2*time.Second),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
	}

	log.Printf("Config loaded - ServerPort: %s, DBPath: %s, S3Bucket: %s", cfg.ServerPort, cfg.DBPath, cfg.S3.Bucket)
	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %d: %v", key, defaultValue, err)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid value for %s, using default %s: %v", key, defaultValue, err)
		return defaultValue
	}
	return d
}
