package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/internal/runtimeconfig"
)

// AppConfigRepository is a runtimeconfig.Store over the apps_configs table.
// Every read goes to the database so changes apply without a restart.
type AppConfigRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAppConfigRepository creates a new settings repository
func NewAppConfigRepository(db *DB, logger *zap.Logger) runtimeconfig.Store {
	return &AppConfigRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns a single setting
func (r *AppConfigRepository) Get(ctx context.Context, key string) (runtimeconfig.Value, error) {
	query := `SELECT key, value, type FROM apps_configs WHERE key = $1`

	var v runtimeconfig.Value
	var typ string
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, key).Scan(&v.Key, &v.Raw, &typ)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return runtimeconfig.Value{}, &runtimeconfig.MissingKeyError{Key: key}
		}
		return runtimeconfig.Value{}, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	v.Type = runtimeconfig.ValueType(typ)
	return v, nil
}

// GetMany returns the settings present among keys
func (r *AppConfigRepository) GetMany(ctx context.Context, keys []string) (map[string]runtimeconfig.Value, error) {
	out := make(map[string]runtimeconfig.Value, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query := `SELECT key, value, type FROM apps_configs WHERE key = ANY($1)`
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v runtimeconfig.Value
		var typ string
		if err := rows.Scan(&v.Key, &v.Raw, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		v.Type = runtimeconfig.ValueType(typ)
		out[v.Key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return out, nil
}

// Set creates or replaces a setting
func (r *AppConfigRepository) Set(ctx context.Context, key string, value interface{}) error {
	v, err := runtimeconfig.NewValue(key, value)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO apps_configs (key, value, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type
	`
	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, v.Key, v.Raw, string(v.Type)); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}

	r.logger.Info("setting updated", zap.String("key", key))
	return nil
}
