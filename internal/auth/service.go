package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"referral-platform/internal/audit"
	"referral-platform/internal/ids"
	"referral-platform/internal/users"
	"referral-platform/pkg/logger"
)

// UserStore is the subset of the identity store the auth core reads and writes.
type UserStore interface {
	Create(ctx context.Context, u users.Identity) (users.Identity, error)
	FindByID(ctx context.Context, id string) (users.Identity, error)
	FindByEmail(ctx context.Context, email string) (users.Identity, error)
}

// Denylist records revoked refresh tokens by jti until their natural expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuditLog receives best-effort auth events.
type AuditLog interface {
	Append(ctx context.Context, e audit.Event) error
}

// Recorder receives outcome counters. Labels are Kind values or "ok".
type Recorder interface {
	Signup(outcome string)
	Login(outcome string)
	TokenCheck(token TokenType, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Signup(string)                {}
func (nopRecorder) Login(string)                 {}
func (nopRecorder) TokenCheck(TokenType, string) {}

// Service implements signup, login, logout, refresh and access-token authentication.
// It holds no mutable state; every call is a function of its inputs, the clock and the store.
type Service struct {
	users    UserStore
	tokens   *Manager
	hasher   Hasher
	denylist Denylist
	audit    AuditLog
	metrics  Recorder
	clock    func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithHasher(h Hasher) Option            { return func(s *Service) { s.hasher = h } }
func WithDenylist(d Denylist) Option        { return func(s *Service) { s.denylist = d } }
func WithAuditLog(a AuditLog) Option        { return func(s *Service) { s.audit = a } }
func WithRecorder(r Recorder) Option        { return func(s *Service) { s.metrics = r } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.clock = now } }

func NewService(store UserStore, tokens *Manager, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	if tokens == nil {
		return nil, errors.New("token manager is required")
	}
	s := &Service{
		users:   store,
		tokens:  tokens,
		hasher:  DefaultHasher(),
		metrics: nopRecorder{},
		clock:   time.Now,
		newID:   ids.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Tokens() *Manager { return s.tokens }
func (s *Service) Hasher() Hasher   { return s.hasher }

type SignupRequest struct {
	Name     string
	Email    string
	Password string
}

// Session is what a successful login returns. RefreshToken is for the cookie only.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             users.Public
}

// Refreshed is what a successful refresh returns. The refresh token is not rotated.
type Refreshed struct {
	AccessToken     string
	AccessExpiresAt time.Time
	User            users.Public
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (users.Public, error) {
	out, err := s.signup(ctx, req)
	s.metrics.Signup(outcome(err))
	return out, err
}

func (s *Service) signup(ctx context.Context, req SignupRequest) (users.Public, error) {
	name := strings.TrimSpace(req.Name)
	email := users.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return users.Public{}, Validation("all fields are required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return users.Public{}, Conflict("user already exists, please login")
	} else if !errors.Is(err, users.ErrNotFound) {
		return users.Public{}, Internal("user lookup failed", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return users.Public{}, Internal("password hashing failed", err)
	}

	created, err := s.users.Create(ctx, users.Identity{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		Role:         users.DefaultRole,
		PasswordHash: hash,
	})
	if err != nil {
		// A concurrent signup for the same email lost the race at the store.
		if errors.Is(err, users.ErrConflict) {
			return users.Public{}, Conflict("user already exists, please login")
		}
		return users.Public{}, Internal("user creation failed", err)
	}

	s.record(ctx, audit.Event{
		Type:          audit.EventTypeSignup,
		ActorUserID:   created.ID,
		ActorRole:     string(created.Role),
		SubjectUserID: created.ID,
	})
	return created.Public(), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	out, err := s.login(ctx, email, password)
	s.metrics.Login(outcome(err))
	return out, err
}

func (s *Service) login(ctx context.Context, email, password string) (Session, error) {
	email = users.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, Validation("email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.record(ctx, audit.Event{Type: audit.EventTypeLoginFailed, Message: "unknown email"})
			return Session{}, NotFound("user not found, please signup first")
		}
		return Session{}, Internal("user lookup failed", err)
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		s.record(ctx, audit.Event{Type: audit.EventTypeLoginFailed, SubjectUserID: u.ID, Message: "wrong password"})
		return Session{}, Unauthorized("invalid credentials")
	}

	pair, err := s.tokens.IssuePair(s.clock(), u.ID, u.Role)
	if err != nil {
		return Session{}, Internal("token issuance failed", err)
	}

	s.record(ctx, audit.Event{
		Type:          audit.EventTypeLoginSucceeded,
		ActorUserID:   u.ID,
		ActorRole:     string(u.Role),
		SubjectUserID: u.ID,
	})
	return Session{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             u.Public(),
	}, nil
}

// Refresh mints a new access token from a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Refreshed, error) {
	out, err := s.refresh(ctx, refreshToken)
	s.metrics.TokenCheck(TokenTypeRefresh, outcome(err))
	return out, err
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (Refreshed, error) {
	if refreshToken == "" {
		return Refreshed{}, Unauthorized("refresh token not provided")
	}

	now := s.clock()
	claims, err := s.tokens.VerifyRefresh(refreshToken, now)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			return Refreshed{}, Unauthorized("refresh token expired")
		}
		return Refreshed{}, Unauthorized("invalid refresh token")
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Refreshed{}, Internal("revocation lookup failed", err)
		}
		if revoked {
			return Refreshed{}, Unauthorized("refresh token revoked")
		}
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Refreshed{}, NotFound("user not found")
		}
		return Refreshed{}, Internal("user lookup failed", err)
	}

	access, accessClaims, err := s.tokens.IssueAccess(now, u.ID, u.Role)
	if err != nil {
		return Refreshed{}, Internal("token issuance failed", err)
	}

	s.record(ctx, audit.Event{
		Type:          audit.EventTypeTokenRefreshed,
		ActorUserID:   u.ID,
		ActorRole:     string(u.Role),
		SubjectUserID: u.ID,
	})
	return Refreshed{
		AccessToken:     access,
		AccessExpiresAt: accessClaims.ExpiresAt.Time,
		User:            u.Public(),
	}, nil
}

// Logout always succeeds. With a denylist configured, a still-valid refresh token is revoked
// until its own expiry; without one the token stays cryptographically valid.
func (s *Service) Logout(ctx context.Context, actor users.Public, refreshToken string) {
	if s.denylist != nil && refreshToken != "" {
		if claims, err := s.tokens.VerifyRefresh(refreshToken, s.clock()); err == nil {
			if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				logger.From(ctx).Warn("refresh token revocation failed", "user_id", actor.ID, "err", err)
			}
		}
	}
	s.record(ctx, audit.Event{
		Type:          audit.EventTypeLogout,
		ActorUserID:   actor.ID,
		ActorRole:     string(actor.Role),
		SubjectUserID: actor.ID,
	})
}

// Authenticate verifies an access token and resolves its subject to a live identity.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (users.Public, error) {
	out, err := s.authenticate(ctx, accessToken)
	s.metrics.TokenCheck(TokenTypeAccess, outcome(err))
	return out, err
}

func (s *Service) authenticate(ctx context.Context, accessToken string) (users.Public, error) {
	if accessToken == "" {
		return users.Public{}, Unauthorized("access token required")
	}

	claims, err := s.tokens.VerifyAccess(accessToken, s.clock())
	if err != nil {
		if errors.Is(err, ErrExpired) {
			return users.Public{}, Forbidden("access token expired")
		}
		return users.Public{}, Forbidden("invalid access token")
	}

	u, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.Public{}, NotFound("user not found")
		}
		return users.Public{}, Internal("user lookup failed", err)
	}
	return u.Public(), nil
}

func (s *Service) record(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", e.Type, "err", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
