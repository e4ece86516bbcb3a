// Package config collects runtime settings from the environment with
// development defaults. Secrets are not read here; they resolve through the
// secret package at startup.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the vault backend.
type Config struct {
	// DevMode switches to the in-memory store and env-var secrets.
	DevMode bool

	// Table names for the four record collections.
	UsersTable    string
	FoldersTable  string
	FilesTable    string
	ActivityTable string

	// SSM parameter names (or env-var sources in DevMode).
	JWTSecretParam          string
	OriginVerifySecretParam string

	// FrontendURL is the origin allowed by CORS and used in cookies.
	FrontendURL string

	// SessionLifetime bounds issued tokens. Zero means the default 30 days.
	SessionLifetime time.Duration

	// ListenAddr is the bind address for the local server entry point.
	ListenAddr string

	// ConnectTimeout bounds storage connection establishment so an
	// unreachable store fails fast instead of hanging.
	ConnectTimeout time.Duration
}

// Load reads the environment and applies defaults.
func Load() *Config {
	cfg := &Config{
		DevMode:                 os.Getenv("DEV_MODE") == "true",
		UsersTable:              envOr("USERS_TABLE", "Users"),
		FoldersTable:            envOr("FOLDERS_TABLE", "Folders"),
		FilesTable:              envOr("FILES_TABLE", "Files"),
		ActivityTable:           envOr("ACTIVITY_LOGS_TABLE", "ActivityLogs"),
		JWTSecretParam:          envOr("JWT_SECRET_PARAM", "/secsky/jwt-secret"),
		OriginVerifySecretParam: envOr("ORIGIN_VERIFY_SECRET_PARAM", "/secsky/origin-verify-secret"),
		FrontendURL:             envOr("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:              envOr("LISTEN_ADDR", ":8080"),
		ConnectTimeout:          5 * time.Second,
	}
	return cfg
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
