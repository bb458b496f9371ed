package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/config"
	"github.com/avillia/receipt-service/internal/runtimeconfig"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return WrapDB(db, logger), nil
}

// WrapDB adopts an already opened pool
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

const schema = `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		login VARCHAR(100) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Roles and their accesses
	CREATE TABLE IF NOT EXISTS roles (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS users_roles (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	);

	CREATE TABLE IF NOT EXISTS accesses (
		id UUID PRIMARY KEY,
		role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		allowed_method VARCHAR(10) NOT NULL,
		route_url VARCHAR(255) NOT NULL,
		UNIQUE (role_id, allowed_method, route_url)
	);

	-- Runtime settings
	CREATE TABLE IF NOT EXISTS apps_configs (
		key VARCHAR(100) PRIMARY KEY,
		value TEXT NOT NULL,
		type VARCHAR(10) NOT NULL CHECK (type IN ('str', 'int', 'bool', 'float'))
	);

	-- Receipts
	CREATE TABLE IF NOT EXISTS receipts (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_cashless_payment BOOLEAN NOT NULL,
		payment_amount NUMERIC(14, 2) NOT NULL,
		creation_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS receipt_items (
		id UUID PRIMARY KEY,
		receipt_id UUID NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		price NUMERIC(14, 2) NOT NULL,
		quantity NUMERIC(14, 3) NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	);

	-- Rendered text cache
	CREATE TABLE IF NOT EXISTS txt_receipts_cache (
		id BIGSERIAL PRIMARY KEY,
		receipt_id UUID NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
		config_str TEXT NOT NULL,
		txt TEXT NOT NULL,
		creation_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (receipt_id, config_str)
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_users_roles_role_id ON users_roles(role_id);
	CREATE INDEX IF NOT EXISTS idx_accesses_role_id ON accesses(role_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_user_id ON receipts(user_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_creation_date ON receipts(creation_date);
	CREATE INDEX IF NOT EXISTS idx_receipt_items_receipt_id ON receipt_items(receipt_id);
	CREATE INDEX IF NOT EXISTS idx_txt_receipts_cache_age ON txt_receipts_cache(creation_date, id);
`

// InitSchema creates the tables and seeds the runtime settings defaults
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := db.SeedSettings(ctx, runtimeconfig.Defaults()); err != nil {
		return err
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// SeedSettings inserts settings that are not present yet; existing values are kept
func (db *DB) SeedSettings(ctx context.Context, defaults map[string]interface{}) error {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := `
		INSERT INTO apps_configs (key, value, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING
	`
	for _, key := range keys {
		v, err := runtimeconfig.NewValue(key, defaults[key])
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, query, v.Key, v.Raw, string(v.Type)); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	db.logger.Debug("runtime settings seeded", zap.Int("keys", len(keys)))
	return nil
}
