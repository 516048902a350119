package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// InvitePolicy names who may invite new collaborators into a project.
type InvitePolicy string

const (
	// InviteAnyCollaborator lets every current collaborator invite (default,
	// matches the invite action exposed to all members in the UI).
	InviteAnyCollaborator InvitePolicy = "any_collaborator"
	// InviteOwnerOnly restricts invites to the project owner.
	InviteOwnerOnly InvitePolicy = "owner_only"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	JWTSecret     string
	JWTExpiry     time.Duration
	SpoolDir      string        // local drop directory watched for completed uploads
	PresenceTTL   time.Duration // heartbeat silence before a participant is evicted
	InvitePolicy  InvitePolicy
	LogOutputPath string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	invitePolicy := InvitePolicy(getEnv("INVITE_POLICY", string(InviteAnyCollaborator)))
	if invitePolicy != InviteAnyCollaborator && invitePolicy != InviteOwnerOnly {
		log.Printf("Unknown INVITE_POLICY %q, falling back to %s", invitePolicy, InviteAnyCollaborator)
		invitePolicy = InviteAnyCollaborator
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "orpheus"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "orpheus-tracks"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiry:     time.Duration(getEnvInt("JWT_EXPIRY_SECONDS", 3600)) * time.Second,
		SpoolDir:      getEnv("SPOOL_DIR", "spool"),
		PresenceTTL:   time.Duration(getEnvInt("PRESENCE_TTL_SECONDS", 30)) * time.Second,
		InvitePolicy:  invitePolicy,
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
	}
}
