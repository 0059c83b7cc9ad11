package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string
	JWTSecret  string

	// Movement guard settings. LockBackend selects "local" (single
	// instance) or "redis" (shared across instances). The critical
	// section must finish well inside MoveLockLease or the guard is
	// force-released while the move is still running.
	LockBackend   string
	RedisAddr     string
	MoveLockWait  time.Duration
	MoveLockLease time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "chestnut_user"),
		DBPassword:    getEnv("DB_PASSWORD", "chestnut_pass"),
		DBName:        getEnv("DB_NAME", "chestnut_db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "supersecretkey"),
		LockBackend:   getEnv("LOCK_BACKEND", "local"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		MoveLockWait:  getEnvDuration("MOVE_LOCK_WAIT", 5*time.Second),
		MoveLockLease: getEnvDuration("MOVE_LOCK_LEASE", 3*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.WithField("key", key).Warnf("Invalid duration %q, using default %s", value, defaultVal)
		return defaultVal
	}
	return d
}
