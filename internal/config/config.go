package config

import (
	"os"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (session projection cache; optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProjectionTTL time.Duration

	// JWT / sessions
	JWTSecret          string
	JWTAccessExpiry    time.Duration
	SessionExpiry      time.Duration
	VerificationExpiry time.Duration
	ResetExpiry        time.Duration

	// Bootstrap admin (created at startup if missing)
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "raceday"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,
		ProjectionTTL: parseDuration(getEnv("PROJECTION_TTL", "5m"), 5*time.Minute),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:    parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		SessionExpiry:      parseDuration(getEnv("SESSION_EXPIRY", "168h"), 168*time.Hour),
		VerificationExpiry: parseDuration(getEnv("VERIFICATION_EXPIRY", "24h"), 24*time.Hour),
		ResetExpiry:        parseDuration(getEnv("RESET_EXPIRY", "1h"), time.Hour),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Platform Admin"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
