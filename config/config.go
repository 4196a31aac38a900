package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Env struct {
	AppEnv   string `env:"APP_ENV" env-default:"development"`
	HTTPPort string `env:"HTTP_PORT" env-default:"3000"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"homesell"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`

	RedisAddr string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" env-default:"0"`

	JWTSecret  string        `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer  string        `env:"JWT_ISSUER" env-default:"homesell-auth"`
	SessionTTL time.Duration `env:"SESSION_TTL" env-default:"24h"`

	// EncryptionKey is 32 bytes hex encoded. Empty disables email encryption at rest.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	// EmailIndexKey keys the email lookup index. Required with ENCRYPTION_KEY and
	// must not change once accounts exist.
	EmailIndexKey string `env:"EMAIL_INDEX_KEY"`

	FrontendURL string `env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	MFAIssuer   string `env:"MFA_ISSUER" env-default:"HomeSell Pro"`

	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" env-default:"5"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION" env-default:"15m"`
	PasswordMaxAge   time.Duration `env:"PASSWORD_MAX_AGE" env-default:"2160h"`
	VerificationTTL  time.Duration `env:"VERIFICATION_TTL" env-default:"24h"`

	SMTPHost    string        `env:"SMTP_HOST"`
	SMTPPort    int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUser    string        `env:"SMTP_USER"`
	SMTPPass    string        `env:"SMTP_PASS"`
	SMTPFrom    string        `env:"SMTP_FROM"`
	MailTimeout time.Duration `env:"MAIL_TIMEOUT" env-default:"10s"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`

	SigninRateLimit  int           `env:"SIGNIN_RATE_LIMIT" env-default:"5"`
	SigninRateWindow time.Duration `env:"SIGNIN_RATE_WINDOW" env-default:"15m"`
	SignupRateLimit  int           `env:"SIGNUP_RATE_LIMIT" env-default:"3"`
	SignupRateWindow time.Duration `env:"SIGNUP_RATE_WINDOW" env-default:"1h"`

	GeoLookupEnabled bool `env:"GEOLOOKUP_ENABLED" env-default:"false"`
	ActivityBuffer   int  `env:"ACTIVITY_BUFFER" env-default:"256"`
}

func (e *Env) IsProduction() bool {
	return e.AppEnv == "production"
}

// LoadEnv reads .env when present and binds the process environment.
func LoadEnv() (*Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	if len(e.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if e.EncryptionKey != "" {
		key, err := hex.DecodeString(e.EncryptionKey)
		if err != nil || len(key) != 32 {
			return errors.New("ENCRYPTION_KEY must be 64 hex characters")
		}
		if e.EmailIndexKey == "" {
			return errors.New("EMAIL_INDEX_KEY is required when ENCRYPTION_KEY is set")
		}
	}
	if e.EmailIndexKey != "" {
		key, err := hex.DecodeString(e.EmailIndexKey)
		if err != nil || len(key) < 16 {
			return errors.New("EMAIL_INDEX_KEY must be at least 32 hex characters")
		}
	}
	if e.LockoutThreshold <= 0 {
		return errors.New("LOCKOUT_THRESHOLD must be positive")
	}
	if e.SessionTTL <= 0 || e.VerificationTTL <= 0 || e.PasswordMaxAge <= 0 {
		return errors.New("SESSION_TTL, VERIFICATION_TTL and PASSWORD_MAX_AGE must be positive")
	}
	return nil
}
