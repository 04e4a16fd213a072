package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"referral-platform/internal/config"
	"referral-platform/internal/users"

	"github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		Issuer:             "issuer",
		Audience:           "aud",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyPair(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	pair, err := m.IssuePair(now, "user-1", users.RoleHR)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}
	if !pair.RefreshExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", pair.RefreshExpiresAt)
	}

	claims, err := m.VerifyAccess(pair.AccessToken, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != users.RoleHR || claims.TokenType != TokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	rc, err := m.VerifyRefresh(pair.RefreshToken, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if rc.Subject != "user-1" || rc.Role != "" {
		t.Fatalf("refresh token must carry subject only: %+v", rc)
	}
	if rc.ID == "" || rc.ID == claims.ID {
		t.Fatalf("expected distinct jti per token")
	}
}

func TestVerify_SecretIsolation(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	for _, role := range users.Roles() {
		pair, err := m.IssuePair(now, "u-"+string(role), role)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := m.VerifyAccess(pair.RefreshToken, now); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("refresh token under access secret: expected ErrInvalidSignature, got %v", err)
		}
		if _, err := m.VerifyRefresh(pair.AccessToken, now); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("access token under refresh secret: expected ErrInvalidSignature, got %v", err)
		}
	}

	// Identical claim shapes signed with a foreign secret still fail.
	foreign, _ := NewCodec([]byte("other"), TokenTypeAccess, "issuer", "aud")
	tok, _, err := foreign.Sign(now, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, Role: users.RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.VerifyAccess(tok, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	c, _ := NewCodec([]byte("s"), TokenTypeRefresh, "", "")
	issued := time.Unix(1700000000, 0).UTC()
	ttl := 15 * time.Minute

	tok, _, err := c.Sign(issued, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, ttl)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for _, eps := range []time.Duration{time.Nanosecond, time.Millisecond, time.Second, time.Minute} {
		if _, err := c.Verify(tok, issued.Add(ttl-eps)); err != nil {
			t.Fatalf("expected valid at ttl-%v, got %v", eps, err)
		}
		if _, err := c.Verify(tok, issued.Add(ttl+eps)); !errors.Is(err, ErrExpired) {
			t.Fatalf("expected ErrExpired at ttl+%v, got %v", eps, err)
		}
	}
	if _, err := c.Verify(tok, issued.Add(ttl)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected exactly-at-expiry to be expired, got %v", err)
	}
}

func TestSign_FractionalIssueTime(t *testing.T) {
	c, _ := NewCodec([]byte("s"), TokenTypeAccess, "", "")
	issued := time.Unix(1700000000, 700_000_000).UTC()
	ttl := 15 * time.Minute

	tok, claims, err := c.Sign(issued, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, ttl)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	iat := claims.IssuedAt.Time
	if !iat.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("expected issued-at on the whole second, got %v", iat)
	}
	if got := claims.ExpiresAt.Time.Sub(iat); got != ttl {
		t.Fatalf("expected lifetime %v, got %v", ttl, got)
	}

	if _, err := c.Verify(tok, issued); err != nil {
		t.Fatalf("expected valid at issue time, got %v", err)
	}
	if _, err := c.Verify(tok, iat.Add(ttl-time.Nanosecond)); err != nil {
		t.Fatalf("expected valid just before expiry, got %v", err)
	}
	if _, err := c.Verify(tok, iat.Add(ttl)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired at iat+ttl, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c", "a.b"} {
		if _, err := m.VerifyAccess(tok, now); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	pair, _ := m.IssuePair(now, "user-1", users.RoleEmployee)

	elevated, _, _ := m.IssueAccess(now, "user-1", users.RoleAdmin)
	parts := strings.Split(pair.AccessToken, ".")
	forged := strings.Split(elevated, ".")
	// Admin payload with the employee token's signature.
	tampered := parts[0] + "." + forged[1] + "." + parts[2]

	if _, err := m.VerifyAccess(tampered, now); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    "issuer",
			Audience:  jwt.ClaimStrings{"aud"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role:      users.RoleAdmin,
		TokenType: TokenTypeAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.VerifyAccess(tok, now); err == nil {
		t.Fatalf("expected alg=none to be rejected")
	}
}

func TestNewManager_RejectsSharedOrMissingSecrets(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{AccessTokenSecret: "s", RefreshTokenSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}); err == nil {
		t.Fatalf("expected error for shared secret")
	}
	if _, err := NewManager(config.AuthConfig{AccessTokenSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}); err == nil {
		t.Fatalf("expected error for missing refresh secret")
	}
}
