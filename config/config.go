package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Server configuration
	Port         string `env:"PORT" envDefault:"8080"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"http://localhost:3000, http://localhost:5000"`

	// MongoDB configuration
	MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"MONGO_DB_NAME" envDefault:"email_scanner"`

	// Session configuration
	SessionSecret     string `env:"SESSION_SECRET" envDefault:"session-secret-key"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`
	SessionExpireDays int    `env:"SESSION_EXPIRE_DAYS" envDefault:"7"`

	// Email scanning configuration
	MaxEmails int    `env:"MAX_EMAILS" envDefault:"30"`
	ModelPath string `env:"MODEL_PATH" envDefault:"model/spam_model.json"`

	// Google OAuth configuration
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	// Gmail provider credential (headless refresh-token flow)
	GmailTokenFile string `env:"GMAIL_TOKEN_FILE" envDefault:"token.json"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}
