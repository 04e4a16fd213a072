package accounts

import (
	"context"
	"errors"
	"strings"

	"referral-platform/internal/audit"
	"referral-platform/internal/auth"
	"referral-platform/internal/users"
	"referral-platform/pkg/logger"
)

// PasswordHasher is satisfied by auth.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, candidate string) bool
}

// Service handles self-service profile changes and admin user management.
// Authorization (who may call what) is enforced by the route's role gate, not here.
type Service struct {
	repo   users.Repository
	hasher PasswordHasher
	audit  *audit.Service
}

func NewService(repo users.Repository, hasher PasswordHasher, auditSvc *audit.Service) (*Service, error) {
	if repo == nil {
		return nil, errors.New("user repository is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	return &Service{repo: repo, hasher: hasher, audit: auditSvc}, nil
}

type ProfileUpdate struct {
	Name            *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

type AdminUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

func (s *Service) Profile(ctx context.Context, userID string) (users.Public, error) {
	return s.Get(ctx, userID)
}

// UpdateProfile changes the caller's own record. A password change requires the current password.
// Input is validated before anything is written; the store applies all changes at once.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (users.Public, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return users.Public{}, mapStoreErr(err)
	}

	fields, err := normalizeFields(upd.Name, upd.Email)
	if err != nil {
		return users.Public{}, err
	}

	if upd.NewPassword != "" {
		if upd.CurrentPassword == "" {
			return users.Public{}, auth.Validation("current password is required")
		}
		if !s.hasher.Verify(u.PasswordHash, upd.CurrentPassword) {
			return users.Public{}, auth.Validation("current password is incorrect")
		}
		hash, err := s.hasher.Hash(upd.NewPassword)
		if err != nil {
			return users.Public{}, auth.Internal("password hashing failed", err)
		}
		fields.PasswordHash = &hash
	}

	if fields.Empty() {
		return u.Public(), nil
	}
	updated, err := s.repo.Update(ctx, userID, fields)
	if err != nil {
		return users.Public{}, mapStoreErr(err)
	}

	actor := u.Public()
	if fields.PasswordHash != nil {
		s.log(ctx, audit.EventTypePasswordChanged, actor, u.ID, "password changed", nil)
	}
	if profile := changedExceptPassword(fields); len(profile) > 0 {
		s.log(ctx, audit.EventTypeUserUpdated, actor, u.ID, "profile updated", profile)
	}
	return updated.Public(), nil
}

func (s *Service) List(ctx context.Context) ([]users.Public, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, auth.Internal("user listing failed", err)
	}
	out := make([]users.Public, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID string) (users.Public, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return users.Public{}, mapStoreErr(err)
	}
	return u.Public(), nil
}

// Update applies admin changes, including role assignment, to any account.
func (s *Service) Update(ctx context.Context, actor users.Public, userID string, upd AdminUpdate) (users.Public, error) {
	fields, err := normalizeFields(upd.Name, upd.Email)
	if err != nil {
		return users.Public{}, err
	}
	if upd.Role != nil {
		role, ok := users.ParseRole(*upd.Role)
		if !ok {
			return users.Public{}, auth.Validation("role must be one of employee, HR, admin")
		}
		fields.Role = &role
	}

	updated, err := s.repo.Update(ctx, userID, fields)
	if err != nil {
		return users.Public{}, mapStoreErr(err)
	}
	s.log(ctx, audit.EventTypeUserUpdated, actor, userID, "user updated by admin", fields.Changed())
	return updated.Public(), nil
}

func (s *Service) Delete(ctx context.Context, actor users.Public, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return mapStoreErr(err)
	}
	s.log(ctx, audit.EventTypeUserDeleted, actor, userID, "user deleted by admin", nil)
	return nil
}

func normalizeFields(name, email *string) (users.Update, error) {
	var out users.Update
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return users.Update{}, auth.Validation("name must not be empty")
		}
		out.Name = &n
	}
	if email != nil {
		e := users.NormalizeEmail(*email)
		if e == "" || !strings.Contains(e, "@") {
			return users.Update{}, auth.Validation("valid email is required")
		}
		out.Email = &e
	}
	return out, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, users.ErrNotFound):
		return auth.NotFound("user not found")
	case errors.Is(err, users.ErrConflict):
		return auth.Conflict("email already in use")
	default:
		return auth.Internal("user store failure", err)
	}
}

func changedExceptPassword(upd users.Update) []string {
	upd.PasswordHash = nil
	return upd.Changed()
}

// log records an account event. Audit failures never fail the account operation.
func (s *Service) log(ctx context.Context, typ audit.EventType, actor users.Public, subjectID, msg string, changed []string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(ctx, audit.Event{
		Type:          typ,
		ActorUserID:   actor.ID,
		ActorRole:     string(actor.Role),
		SubjectUserID: subjectID,
		Message:       msg,
		Metadata:      audit.ChangedFields(changed),
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "type", typ, "subject_user_id", subjectID, "err", err)
	}
}
