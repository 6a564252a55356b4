package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Policy values such as the payment hold
// window and the OTP cooldown are configuration inputs here, never
// constants in the core packages.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	PaymentHold    time.Duration // how long an unpaid order keeps its seats
	OTPTTL         time.Duration // validity window of an issued OTP code
	OTPCooldown    time.Duration // minimum gap between OTP resends
	SweepInterval  time.Duration // cadence of the optional expiry sweeper
	GatewayBaseURL string        // payment gateway API base URL
	GatewayKey     string        // payment gateway server key
}

// Load reads configuration from environment variables.  Required values
// are enforced by must(); missing ones abort startup with a fatal log.
// Policy durations fall back to sensible defaults so a dev environment
// needs only the core variables.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		PaymentHold:    time.Duration(envInt("PAYMENT_HOLD_MINUTES", 120)) * time.Minute,
		OTPTTL:         time.Duration(envInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		OTPCooldown:    time.Duration(envInt("OTP_RESEND_COOLDOWN_SECONDS", 60)) * time.Second,
		SweepInterval:  time.Duration(envInt("EXPIRY_SWEEP_SECONDS", 300)) * time.Second,
		GatewayBaseURL: envStr("PAYMENT_GATEWAY_URL", "https://api.sandbox.gateway.local"),
		GatewayKey:     os.Getenv("PAYMENT_GATEWAY_KEY"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
