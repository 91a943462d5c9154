package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filedock/filedock/internal/apperr"
	"github.com/filedock/filedock/internal/model"
	"github.com/filedock/filedock/internal/schema"
	"github.com/filedock/filedock/internal/session"
	"github.com/filedock/filedock/pkg/table"
)

// DefaultAdminPassword is the seeded admin credential; the account is
// created with a forced password change.
const DefaultAdminPassword = "ChangeMe123!"

// adminUsername must match user.AdminUsername; duplicated here to keep the
// packages independent.
const adminUsername = "admin"

// Service implements the authentication flows.
type Service struct {
	table    table.Store
	sessions *session.Store
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates an auth service.
func NewService(t table.Store, sessions *session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{table: t, sessions: sessions, logger: logger, now: time.Now}
}

// LoginResult is a successful login.
type LoginResult struct {
	SessionToken       string     `json:"sessionToken"`
	Username           string     `json:"username"`
	Role               model.Role `json:"role"`
	MustChangePassword bool       `json:"mustChangePassword"`
}

// Login verifies credentials and issues a session. Unknown usernames and
// wrong passwords produce the same unauthenticated outcome, so callers
// cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password required", apperr.ErrValidation)
	}

	item, err := s.table.Get(ctx, schema.UserKey(username))
	if errors.Is(err, table.ErrItemNotFound) {
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}
	if err != nil {
		return LoginResult{}, apperr.Storage(err)
	}
	user, err := schema.DecodeUser(item)
	if err != nil {
		return LoginResult{}, apperr.Storage(err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return LoginResult{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}

	token, err := s.sessions.Create(ctx, user.Username, user.Role)
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.Info("login", zap.String("username", username), zap.String("role", string(user.Role)))
	return LoginResult{
		SessionToken:       token,
		Username:           user.Username,
		Role:               user.Role,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Logout revokes the session behind a token. The token must be valid.
func (s *Service) Logout(ctx context.Context, token string) error {
	principal, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, principal.Token); err != nil {
		return err
	}
	s.logger.Info("logout", zap.String("username", principal.Username))
	return nil
}

// ChangePassword lets the session's own user rotate their password after
// re-verifying the current one, clearing any forced-change flag.
func (s *Service) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	principal, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return err
	}
	if currentPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: current and new password required", apperr.ErrValidation)
	}

	item, err := s.table.Get(ctx, schema.UserKey(principal.Username))
	if errors.Is(err, table.ErrItemNotFound) {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, principal.Username)
	}
	if err != nil {
		return apperr.Storage(err)
	}
	user, err := schema.DecodeUser(item)
	if err != nil {
		return apperr.Storage(err)
	}

	if !VerifyPassword(currentPassword, user.PasswordHash) {
		return fmt.Errorf("%w: current password is incorrect", apperr.ErrUnauthenticated)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Storage(err)
	}
	user.PasswordHash = passwordHash
	user.MustChangePassword = false

	if err := s.table.Put(ctx, schema.UserItem(user)); err != nil {
		return apperr.Storage(err)
	}

	s.logger.Info("password changed", zap.String("username", principal.Username))
	return nil
}

// SeedAdmin idempotently creates the distinguished admin account with the
// default password and a forced password change. Returns false when the
// account already exists.
func (s *Service) SeedAdmin(ctx context.Context) (bool, error) {
	if _, err := s.table.Get(ctx, schema.UserKey(adminUsername)); err == nil {
		return false, nil
	} else if !errors.Is(err, table.ErrItemNotFound) {
		return false, apperr.Storage(err)
	}

	passwordHash, err := HashPassword(DefaultAdminPassword)
	if err != nil {
		return false, apperr.Storage(err)
	}

	admin := model.User{
		Username:           adminUsername,
		PasswordHash:       passwordHash,
		Role:               model.RoleAdmin,
		MustChangePassword: true,
		CreatedAt:          s.now().Unix(),
	}
	if err := s.table.Put(ctx, schema.UserItem(admin)); err != nil {
		return false, apperr.Storage(err)
	}

	s.logger.Info("admin account seeded")
	return true, nil
}
