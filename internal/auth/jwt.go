package auth

import (
	"errors"
	"fmt"
	"time"

	"referral-platform/internal/config"
	"referral-platform/internal/users"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// Codec signs and verifies one class of token with its own HMAC secret.
// A token signed by one Codec never verifies under a Codec holding a different secret.
type Codec struct {
	secret    []byte
	tokenType TokenType
	issuer    string
	audience  string
}

func NewCodec(secret []byte, tokenType TokenType, issuer, audience string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%s token secret is required", tokenType)
	}
	return &Codec{
		secret:    secret,
		tokenType: tokenType,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// Sign embeds subject, issued-at and expires-at (now+ttl) plus the caller's claims and returns the
// compact token together with the claims that were signed.
// JWT times are whole seconds, so now is truncated first and expires-at minus issued-at is exactly ttl.
func (c *Codec) Sign(now time.Time, claims Claims, ttl time.Duration) (string, Claims, error) {
	if claims.Subject == "" {
		return "", Claims{}, errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", Claims{}, errors.New("ttl must be > 0")
	}

	now = now.Truncate(time.Second)
	claims.Issuer = c.issuer
	claims.Audience = audienceOrNil(c.audience)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()
	claims.TokenType = c.tokenType

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return s, claims, nil
}

// Verify checks signature, then expiry as of now. A token is expired when now >= expiresAt.
// Errors wrap exactly one of ErrMalformed, ErrInvalidSignature or ErrExpired.
func (c *Codec) Verify(tokenString string, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if claims.TokenType != c.tokenType {
		return Claims{}, fmt.Errorf("%w: token_type mismatch", ErrMalformed)
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: subject missing", ErrMalformed)
	}
	// Role is required only for access tokens.
	if c.tokenType == TokenTypeAccess && !claims.Role.Valid() {
		return Claims{}, fmt.Errorf("%w: role missing in access token", ErrMalformed)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}

// Manager owns the access and refresh codecs and their lifetimes.
type Manager struct {
	access     *Codec
	refresh    *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	access, err := NewCodec([]byte(cfg.AccessTokenSecret), TokenTypeAccess, cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, err
	}
	refresh, err := NewCodec([]byte(cfg.RefreshTokenSecret), TokenTypeRefresh, cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, err
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token ttls must be > 0")
	}
	return &Manager{
		access:     access,
		refresh:    refresh,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *Manager) IssuePair(now time.Time, userID string, role users.Role) (TokenPair, error) {
	access, accessClaims, err := m.IssueAccess(now, userID, role)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, refreshClaims, err := m.refresh.Sign(now, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) IssueAccess(now time.Time, userID string, role users.Role) (string, Claims, error) {
	return m.access.Sign(now, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Role:             role,
	}, m.accessTTL)
}

func (m *Manager) VerifyAccess(token string, now time.Time) (Claims, error) {
	return m.access.Verify(token, now)
}

func (m *Manager) VerifyRefresh(token string, now time.Time) (Claims, error) {
	return m.refresh.Verify(token, now)
}
