// Package identity handles login, signup and role assignment
package identity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
	"github.com/avillia/receipt-service/services"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(ctx context.Context, subject string, grants auth.PermissionSet) (string, error)
}

// SignupInput describes a new account
type SignupInput struct {
	Login    string
	Name     string
	Email    string
	Password string
}

// Service implements identity business logic
type Service struct {
	users  repositories.UserRepository
	roles  repositories.RoleRepository
	issuer TokenIssuer
	hasher *PasswordHasher
	logger *zap.Logger
}

// NewService creates a new identity service
func NewService(
	users repositories.UserRepository,
	roles repositories.RoleRepository,
	issuer TokenIssuer,
	hasher *PasswordHasher,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:  users,
		roles:  roles,
		issuer: issuer,
		hasher: hasher,
		logger: logger,
	}
}

// Login checks the password and returns a token carrying the user's grants.
// The grants are read now; later role changes need a new login.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Info("login with unknown subject", zap.String("login", login))
			return "", services.ErrUnknownSubject.WithDetail("login", login)
		}
		return "", services.ErrDatabaseError.Wrap(err)
	}

	ok, err := s.hasher.Matches(password, user.PasswordHash)
	if err != nil {
		return "", services.WrapInternal("failed to verify password", err)
	}
	if !ok {
		s.logger.Info("login with invalid password", zap.String("login", login))
		return "", services.ErrInvalidCredentials.WithDetail("login", login)
	}

	grants, err := s.users.ListGrants(ctx, user.ID)
	if err != nil {
		return "", services.ErrDatabaseError.Wrap(err)
	}

	token, err := s.issuer.Issue(ctx, user.ID.String(), auth.PermissionSetFromStrings(grants))
	if err != nil {
		return "", err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.Int("grants", len(grants)))
	return token, nil
}

// Signup creates an account without roles
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Login, in.Name, in.Email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateLogin.WithDetail("login", in.Login)
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()), zap.String("login", user.Login))
	return user, nil
}

// AssignRole gives an existing role to a user; false when the user already had it
func (s *Service) AssignRole(ctx context.Context, roleName, login string) (bool, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, services.ErrUserNotFound.WithDetail("login", login)
		}
		return false, services.ErrDatabaseError.Wrap(err)
	}

	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, services.ErrRoleNotFound.WithDetail("role", roleName)
		}
		return false, services.ErrDatabaseError.Wrap(err)
	}

	changed, err := s.roles.Assign(ctx, user.ID, role.ID)
	if err != nil {
		return false, services.ErrDatabaseError.Wrap(err)
	}

	s.logger.Info("role assigned",
		zap.String("role", roleName),
		zap.String("login", login),
		zap.Bool("changed", changed))
	return changed, nil
}

// EnsureRole creates a role if needed and grants it the given accesses
func (s *Service) EnsureRole(ctx context.Context, name string, grants ...auth.Grant) (*models.Role, error) {
	role, err := s.roles.EnsureExists(ctx, name)
	if err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	for _, g := range grants {
		if _, err := s.roles.Grant(ctx, role.ID, g); err != nil {
			return nil, services.ErrDatabaseError.Wrap(err)
		}
	}
	return role, nil
}
