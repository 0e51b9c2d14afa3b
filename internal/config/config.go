package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds everything the process needs, loaded once at startup and
// passed down explicitly. No component reads environment variables directly.
type Settings struct {
	Port     string
	GRPCPort string

	SecretKey               string
	Algorithm               string
	AccessTokenExpireMinute int
	JWTIssuer               string
	JWTAudience             string

	DatabaseURL string
	RedisURL    string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RateLimitPerSecond int
	RateLimitBurst     int
	MaxBodyBytes       int64

	CORSOrigins []string

	CredentialSweepSchedule string
}

// Load reads settings from the environment (and an optional .env file).
func Load() (*Settings, error) {
	_ = godotenv.Load()

	s := &Settings{
		Port:                    getEnv("PORT", "8080"),
		GRPCPort:                getEnv("GRPC_PORT", "9090"),
		SecretKey:               strings.TrimSpace(os.Getenv("SECRET_KEY")),
		Algorithm:               getEnv("ALGORITHM", "HS256"),
		AccessTokenExpireMinute: getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		JWTIssuer:               strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		JWTAudience:             strings.TrimSpace(os.Getenv("JWT_AUD")),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ReadTimeout:             getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:            getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:             getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:         getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitPerSecond:      getInt("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:          getInt("RATE_LIMIT_BURST", 100),
		MaxBodyBytes:            getInt64("MAX_BODY_BYTES", 1<<20),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		CredentialSweepSchedule: getEnv("CREDENTIAL_SWEEP_SCHEDULE", "@every 10m"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects configurations the server cannot run with.
func (s *Settings) Validate() error {
	if s.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if s.Algorithm != "HS256" {
		return fmt.Errorf("unsupported ALGORITHM %q (only HS256)", s.Algorithm)
	}
	if s.AccessTokenExpireMinute <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if s.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	return nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *Settings) AccessTokenTTL() time.Duration {
	return time.Duration(s.AccessTokenExpireMinute) * time.Minute
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
