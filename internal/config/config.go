package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=assets port=5432 sslmode=disable"

type Config struct {
	HTTPPort     string
	DBDriver     string // postgres, mysql, sqlite
	DatabaseDSN  string
	DBLogLevel   string
	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
	CORSOrigins  string
	UploadDir    string

	BackupDir      string
	BackupInterval time.Duration
	MongoBackupURI string
	MongoBackupDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] could not read .env: %v", err)
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:     getEnv("DATABASE_DSN", defaultDSN),
		DBLogLevel:      strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getDuration("TOKEN_TTL", 24*time.Hour),
		CookieSecure:    getBool("COOKIE_SECURE", false),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		BackupDir:       getEnv("BACKUP_DIR", "./backups"),
		BackupInterval:  getDuration("BACKUP_INTERVAL", 24*time.Hour),
		MongoBackupURI:  getEnv("MONGO_BACKUP_URI", ""),
		MongoBackupDB:   getEnv("MONGO_BACKUP_DB", "asset_tracker_backups"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),
		LoginRateLimit:  getInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getDuration("LOGIN_RATE_WINDOW", time.Minute),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	switch cfg.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		log.Fatalf("[FATAL] unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default local value")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the development default")
	}

	return cfg
}

// CORSOriginList splits and trims CORS_ALLOWED_ORIGINS.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a boolean, using %v", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}
