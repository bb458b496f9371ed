package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

// RoleRepository implements the repositories.RoleRepository interface
type RoleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB, logger *zap.Logger) repositories.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureExists returns the named role, creating it when absent
func (r *RoleRepository) EnsureExists(ctx context.Context, name string) (*models.Role, error) {
	candidate := models.NewRole(name)
	query := `
		INSERT INTO roles (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, candidate.ID, candidate.Name, candidate.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure role: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 1 {
		r.logger.Info("role created", zap.String("name", name))
		return candidate, nil
	}
	return r.GetByName(ctx, name)
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	query := `
		SELECT id, name, created_at
		FROM roles
		WHERE name = $1
	`

	executor := GetExecutor(ctx, r.db)
	role := &models.Role{}
	err := executor.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// Assign links a user to a role
func (r *RoleRepository) Assign(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO users_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, userID, roleID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("assign role: %w", repositories.ErrNotFound)
		}
		return false, fmt.Errorf("failed to assign role: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("role assignment",
		zap.String("user_id", userID.String()),
		zap.String("role_id", roleID.String()),
		zap.Bool("changed", n > 0))
	return n > 0, nil
}

// Grant adds an access to a role
func (r *RoleRepository) Grant(ctx context.Context, roleID uuid.UUID, grant auth.Grant) (bool, error) {
	access := models.NewAccess(roleID, grant)
	query := `
		INSERT INTO accesses (id, role_id, allowed_method, route_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (role_id, allowed_method, route_url) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, access.ID, access.RoleID, access.AllowedMethod, access.RouteURL)
	if err != nil {
		return false, fmt.Errorf("failed to grant access: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
