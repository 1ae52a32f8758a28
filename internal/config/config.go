package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Auth         AuthConfig
	Email        EmailConfig
	Verification VerificationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds session token settings. The secret is process-wide and
// loaded once; there is no rotation support.
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	ExpirationMinutes int    `mapstructure:"expiration_minutes"`
}

// AuthConfig holds authentication policy settings.
type AuthConfig struct {
	// RequireVerifiedToLogin gates login on a verified email. Off by default
	// to match the historical behavior; flip per product decision.
	RequireVerifiedToLogin bool `mapstructure:"require_verified_to_login"`

	// AdminEmail/AdminPassword seed the initial admin account at startup.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// EmailConfig holds outbound email settings.
type EmailConfig struct {
	// Provider selects the delivery backend: "resend" or "noop".
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	From     string `mapstructure:"from"`
}

// VerificationConfig holds one-time code settings.
type VerificationConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

// TokenTTL returns the session token lifetime as a duration.
func (j *JWTConfig) TokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// CodeTTL returns the verification code lifetime as a duration.
func (v *VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.TTLMinutes) * time.Minute
}

// PostgresConnectionString builds the PostgreSQL DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from an optional file merged with environment
// variables. Env vars are bound explicitly so the mapping stays greppable.
func Load(configPath string) (*Config, error) {
	vip := viper.New()

	vip.SetDefault("server.port", "8000")
	vip.SetDefault("server.readtimeout", 10)
	vip.SetDefault("server.writetimeout", 10)
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("jwt.expiration_minutes", 30)
	vip.SetDefault("verification.ttl_minutes", 15)
	vip.SetDefault("email.provider", "noop")

	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("jwt.secret", "JWT_SECRET_KEY")
	vip.BindEnv("jwt.expiration_minutes", "JWT_EXPIRATION_MINUTES")

	vip.BindEnv("auth.require_verified_to_login", "AUTH_REQUIRE_VERIFIED_TO_LOGIN")
	vip.BindEnv("auth.admin_email", "ADMIN_EMAIL")
	vip.BindEnv("auth.admin_password", "ADMIN_PASSWORD")

	vip.BindEnv("email.provider", "EMAIL_PROVIDER")
	vip.BindEnv("email.api_key", "EMAIL_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	vip.BindEnv("verification.ttl_minutes", "VERIFICATION_TTL_MINUTES")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Config file '%s' not found, falling back to env vars/defaults", configPath)
			} else {
				log.Printf("Warning: could not read config file '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Loaded configuration ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("JWT Expiration Minutes: %d", cfg.JWT.ExpirationMinutes)
		log.Printf("Require Verified To Login: %t", cfg.Auth.RequireVerifiedToLogin)
		log.Printf("Email Provider: %s", cfg.Email.Provider)
		log.Printf("----------------------------")
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required (check JWT_SECRET_KEY env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Email.Provider == "resend" && cfg.Email.APIKey == "" {
		return nil, fmt.Errorf("email api key is required for the resend provider (check EMAIL_API_KEY env var)")
	}

	return &cfg, nil
}
