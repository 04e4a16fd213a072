package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		Store: StoreConfig{Driver: StoreDriverPostgres},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "referrals"},
		Auth:  AuthConfig{AccessTokenSecret: "access", RefreshTokenSecret: "refresh"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", c.Auth.RefreshTokenTTL)
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		t.Fatalf("expected rate limit defaults, got %+v", c.RateLimit)
	}
}

func TestValidate_SecretsMustDiffer(t *testing.T) {
	c := validLocal()
	c.Auth.RefreshTokenSecret = c.Auth.AccessTokenSecret
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
}

func TestValidate_ProductionRequiresSSLModeAndIssuer(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and issuer")
	}
}

func TestValidate_MemoryDriverSkipsDB(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "dev", Port: 8080},
		Store: StoreConfig{Driver: StoreDriverMemory},
		Auth:  AuthConfig{AccessTokenSecret: "a", RefreshTokenSecret: "b"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RevocationRequiresRedis(t *testing.T) {
	c := validLocal()
	c.Auth.RevokeOnLogout = true
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when revocation enabled without redis")
	}
	c.Redis = RedisConfig{Host: "localhost", Port: 6379}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RefreshMustOutliveAccess(t *testing.T) {
	c := validLocal()
	c.Auth.AccessTokenTTL = time.Hour
	c.Auth.RefreshTokenTTL = time.Minute
	if err := c.Validate(); err == nil {
		t.Fatalf("expected ttl ordering error")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "b")
	t.Setenv("ACCESS_TOKEN_TTL", "10m")
	t.Setenv("AUTH_REVOKE_ON_LOGOUT", "false")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 5002 {
		t.Fatalf("expected default port 5002, got %d", c.App.Port)
	}
	if c.Auth.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("expected 10m, got %v", c.Auth.AccessTokenTTL)
	}
}

func TestValidate_TrustedProxies(t *testing.T) {
	c := validLocal()
	c.HTTP.TrustedProxies = []string{"10.0.0.1", "192.168.0.0/16", "::1"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	c.HTTP.TrustedProxies = []string{"10.0.0.1", "lb.internal"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for hostname entry")
	}
}

func TestLoad_TrustedProxiesAndPools(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "b")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1 ")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")
	t.Setenv("REDIS_DB", "3")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"10.0.0.0/8", "127.0.0.1"}
	if len(c.HTTP.TrustedProxies) != 2 || c.HTTP.TrustedProxies[0] != want[0] || c.HTTP.TrustedProxies[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, c.HTTP.TrustedProxies)
	}
	if c.DB.MaxOpenConns != 4 || c.DB.ConnMaxLifetime != 10*time.Minute || c.Redis.DB != 3 {
		t.Fatalf("unexpected pool settings: db=%+v redis=%+v", c.DB, c.Redis)
	}
}

func TestLoad_TrustedProxiesUnsetIsEmpty(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "b")
	t.Setenv("TRUSTED_PROXIES", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTP.TrustedProxies != nil {
		t.Fatalf("expected no trusted proxies, got %v", c.HTTP.TrustedProxies)
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ACCESS_TOKEN_SECRET", "a")
	t.Setenv("REFRESH_TOKEN_SECRET", "b")
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
