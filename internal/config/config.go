// Package config builds the process configuration once at start-up.
// Business code receives a *Config (or one of its sections) through its
// constructor and never reads the environment itself.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	SMTP     SMTPConfig
	Google   GoogleConfig
	Stripe   StripeConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	TrustProxy     bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LoginRateLimit int
	LoginRateTTL   time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds one signing secret per token purpose so a leaked block
// link can never be replayed as a session token.
type JWTConfig struct {
	Issuer         string
	AccessSecret   string
	RefreshSecret  string
	BlockSecret    string
	VerifySecret   string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	BlockTTL       time.Duration
	VerifyTTL      time.Duration
	CustRefreshTTL time.Duration
}

type SecurityConfig struct {
	DeviceMaxFailures     int
	DeviceLockDuration    time.Duration
	DeviceMaxLocks        int
	SecondaryMaxFailures  int
	SecondaryLockDuration time.Duration
	SecondaryMaxLocks     int

	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	MaxOTPAttempts    int

	CustomerMaxFailures    int
	CustomerLockDuration   time.Duration
	PasswordChangeCooldown time.Duration
	EmailVerificationTTL   time.Duration
	PasswordResetTTL       time.Duration

	LocationToleranceMeters float64

	IPCheckURL      string
	IPCheckToken    string
	IPCheckTimeout  time.Duration
	IPVerdictTTL    time.Duration
	AllowPrivateIPs bool

	SecurityAlertEmail string
	BcryptCost         int
}

type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	Connections        int
	SendTimeout        time.Duration
	InsecureSkipVerify bool
}

type GoogleConfig struct {
	ClientID string
}

type StripeConfig struct {
	SecretKey string
}

type AppConfig struct {
	// PublicURL is the externally reachable API base, used for links in emails.
	PublicURL string
	// FrontendURL hosts the password reset page.
	FrontendURL string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the environment into a Config. In production every signing
// secret must be set explicitly.
func Load() (*Config, error) {
	env := GetEnv("ENV", "development")
	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Port:           GetEnv("PORT", "3000"),
			AllowedOrigins: GetEnv("CORS_ORIGINS", "http://localhost:5173"),
			TrustProxy:     GetBoolEnv("TRUST_PROXY", false),
			ReadTimeout:    GetDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   GetDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			LoginRateLimit: GetIntEnv("LOGIN_RATE_LIMIT", 10),
			LoginRateTTL:   GetDurationEnv("LOGIN_RATE_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "freshcart"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Issuer:         GetEnv("JWT_ISSUER", "freshcart-api"),
			AccessSecret:   GetEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:  GetEnv("JWT_REFRESH_SECRET", ""),
			BlockSecret:    GetEnv("JWT_BLOCK_SECRET", ""),
			VerifySecret:   GetEnv("JWT_VERIFY_SECRET", ""),
			AccessTTL:      GetDurationEnv("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTTL:     GetDurationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),
			BlockTTL:       GetDurationEnv("BLOCK_TOKEN_TTL", 10*time.Minute),
			VerifyTTL:      GetDurationEnv("VERIFY_TOKEN_TTL", 24*time.Hour),
			CustRefreshTTL: GetDurationEnv("CUSTOMER_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		},
		Security: SecurityConfig{
			DeviceMaxFailures:       GetIntEnv("DEVICE_MAX_FAILURES", 3),
			DeviceLockDuration:      GetDurationEnv("DEVICE_LOCK_DURATION", 30*time.Minute),
			DeviceMaxLocks:          GetIntEnv("DEVICE_MAX_LOCKS", 2),
			SecondaryMaxFailures:    GetIntEnv("SECONDARY_MAX_FAILURES", 3),
			SecondaryLockDuration:   GetDurationEnv("SECONDARY_LOCK_DURATION", 30*time.Minute),
			SecondaryMaxLocks:       GetIntEnv("SECONDARY_MAX_LOCKS", 2),
			OTPTTL:                  GetDurationEnv("OTP_TTL", 5*time.Minute),
			OTPResendCooldown:       GetDurationEnv("OTP_RESEND_COOLDOWN", 5*time.Minute),
			MaxOTPAttempts:          GetIntEnv("MAX_OTP_ATTEMPTS", 5),
			CustomerMaxFailures:     GetIntEnv("CUSTOMER_MAX_FAILURES", 5),
			CustomerLockDuration:    GetDurationEnv("CUSTOMER_LOCK_DURATION", 30*time.Minute),
			PasswordChangeCooldown:  GetDurationEnv("PASSWORD_CHANGE_COOLDOWN", 10*time.Minute),
			EmailVerificationTTL:    GetDurationEnv("EMAIL_VERIFICATION_TTL", time.Hour),
			PasswordResetTTL:        GetDurationEnv("PASSWORD_RESET_TTL", time.Hour),
			LocationToleranceMeters: GetFloatEnv("LOCATION_TOLERANCE_METERS", 1000),
			IPCheckURL:              GetEnv("IP_CHECK_URL", ""),
			IPCheckToken:            GetEnv("IP_CHECK_TOKEN", ""),
			IPCheckTimeout:          GetDurationEnv("IP_CHECK_TIMEOUT", 3*time.Second),
			IPVerdictTTL:            GetDurationEnv("IP_VERDICT_TTL", 10*time.Minute),
			AllowPrivateIPs:         GetBoolEnv("ALLOW_PRIVATE_IPS", false),
			SecurityAlertEmail:      GetEnv("SECURITY_ALERT_EMAIL", ""),
			BcryptCost:              GetIntEnv("BCRYPT_COST", 10),
		},
		SMTP: SMTPConfig{
			Host:               GetEnv("SMTP_HOST", "localhost"),
			Port:               GetIntEnv("SMTP_PORT", 1025),
			Username:           GetEnv("SMTP_USER", ""),
			Password:           GetEnv("SMTP_PASSWORD", ""),
			From:               GetEnv("SMTP_FROM", "FreshCart <no-reply@freshcart.local>"),
			Connections:        GetIntEnv("SMTP_CONNECTIONS", 4),
			SendTimeout:        GetDurationEnv("SMTP_SEND_TIMEOUT", 10*time.Second),
			InsecureSkipVerify: GetBoolEnv("SMTP_INSECURE_SKIP_VERIFY", false),
		},
		Google: GoogleConfig{
			ClientID: GetEnv("GOOGLE_CLIENT_ID", ""),
		},
		Stripe: StripeConfig{
			SecretKey: GetEnv("STRIPE_SECRET_KEY", ""),
		},
		App: AppConfig{
			PublicURL:   strings.TrimRight(GetEnv("PUBLIC_URL", "http://localhost:3000"), "/"),
			FrontendURL: strings.TrimRight(GetEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		},
	}

	if err := cfg.fillSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) fillSecrets() error {
	secrets := []*string{
		&c.JWT.AccessSecret,
		&c.JWT.RefreshSecret,
		&c.JWT.BlockSecret,
		&c.JWT.VerifySecret,
	}
	for _, s := range secrets {
		if *s != "" {
			continue
		}
		if c.IsProduction() {
			return errors.New("JWT_ACCESS_SECRET, JWT_REFRESH_SECRET, JWT_BLOCK_SECRET and JWT_VERIFY_SECRET must be set in production")
		}
	}
	// Development fallbacks are distinct per purpose.
	if c.JWT.AccessSecret == "" {
		c.JWT.AccessSecret = "dev-access-secret"
	}
	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = "dev-refresh-secret"
	}
	if c.JWT.BlockSecret == "" {
		c.JWT.BlockSecret = "dev-block-secret"
	}
	if c.JWT.VerifySecret == "" {
		c.JWT.VerifySecret = "dev-verify-secret"
	}
	return nil
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv parses values like "30m" or "1h".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
