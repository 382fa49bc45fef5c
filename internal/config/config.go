// Package config provides application configuration.
package config

import (
	"os"
	"path/filepath"
)

// Default listening ports for the two bridge services.
const (
	DefaultBridgePort        = "3737"
	DefaultConfirmationsPort = "3738"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port string
	Host string

	// Audit log database
	AuditDBPath string

	// Vendor endpoints. Overridable so tests can point the client at a stub.
	CommunityURL string
	APIBaseURL   string

	// Environment
	IsDevelopment bool
}

// New creates a new Config with values from environment variables or defaults.
// defaultPort is the service-specific fallback when PORT is unset.
func New(defaultPort string) *Config {
	return &Config{
		Port:          getEnv("PORT", defaultPort),
		Host:          getEnv("HOST", ""),
		AuditDBPath:   getEnv("AUDIT_DB_PATH", filepath.Join("data", "audit.db")),
		CommunityURL:  getEnv("STEAM_COMMUNITY_URL", "https://steamcommunity.com"),
		APIBaseURL:    getEnv("STEAM_API_URL", "https://api.steampowered.com"),
		IsDevelopment: getEnv("ENV", "development") == "development",
	}
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
