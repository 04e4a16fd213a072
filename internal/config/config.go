package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from env (optionally seeded from a .env file). It is built once in main
// and passed down; no package reads raw environment variables after startup.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type HTTPConfig struct {
	// ClientURL is the browser origin allowed to send credentialed (cookie) requests.
	ClientURL string

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is believed.
	// Empty means none: the client IP, and so the rate-limit key, is the TCP peer.
	TrustedProxies []string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Pool sizing; zero leaves the utils.PoolConfig defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	Issuer             string
	Audience           string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// RevokeOnLogout records logged-out refresh tokens in a Redis denylist until they expire.
	RevokeOnLogout bool
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, parseErrs = intOr(parseErrs, "APP_PORT", 5002)

	c.HTTP.ClientURL = strings.TrimSpace(os.Getenv("CLIENT_URL"))
	c.HTTP.TrustedProxies = listOf("TRUSTED_PROXIES")

	c.Store.Driver = strings.TrimSpace(os.Getenv("STORE_DRIVER"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, parseErrs = intOr(parseErrs, "DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.MaxOpenConns, parseErrs = intOr(parseErrs, "DB_MAX_OPEN_CONNS", 0)
	c.DB.MaxIdleConns, parseErrs = intOr(parseErrs, "DB_MAX_IDLE_CONNS", 0)
	c.DB.ConnMaxLifetime, parseErrs = durationOr(parseErrs, "DB_CONN_MAX_LIFETIME")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, parseErrs = intOr(parseErrs, "REDIS_PORT", 6379)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB, parseErrs = intOr(parseErrs, "REDIS_DB", 0)

	c.Auth.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	c.Auth.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	c.Auth.Issuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.Audience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL, parseErrs = durationOr(parseErrs, "ACCESS_TOKEN_TTL")
	c.Auth.RefreshTokenTTL, parseErrs = durationOr(parseErrs, "REFRESH_TOKEN_TTL")
	c.Auth.RevokeOnLogout, parseErrs = boolOr(parseErrs, "AUTH_REVOKE_ON_LOGOUT")

	c.RateLimit.PerSecond, parseErrs = floatOr(parseErrs, "AUTH_RATE_LIMIT_PER_SECOND")
	c.RateLimit.Burst, parseErrs = intOr(parseErrs, "AUTH_RATE_LIMIT_BURST", 0)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and applies defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.HTTP.ClientURL == "" {
		c.HTTP.ClientURL = "http://localhost:3000"
	}
	for _, p := range c.HTTP.TrustedProxies {
		if !isIPOrCIDR(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entries must be IPs or CIDRs, got %q", p))
		}
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverPostgres
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
		errs = append(errs, c.validateDB()...)
	case StoreDriverMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of postgres, memory, got %q", c.Store.Driver))
	}

	if c.Auth.RevokeOnLogout {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when AUTH_REVOKE_ON_LOGOUT is enabled"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
		if c.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("REDIS_DB must not be negative, got %d", c.Redis.DB))
		}
	}

	if c.Auth.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Auth.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.Auth.AccessTokenSecret != "" && c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.IsProduction() {
		if c.Auth.Issuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.Audience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = defaultAccessTTL
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = defaultRefreshTTL
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be greater than ACCESS_TOKEN_TTL"))
	}

	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func intOr(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func floatOr(errs []error, key string) (float64, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a number, got %q", key, v))
	}
	return f, errs
}

func boolOr(errs []error, key string) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

// listOf splits a comma-separated value, dropping blanks.
func listOf(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// durationOr returns zero when unset so Validate can apply defaults.
func durationOr(errs []error, key string) (time.Duration, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isIPOrCIDR(v string) bool {
	if net.ParseIP(v) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(v)
	return err == nil
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
