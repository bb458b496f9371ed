package postgres

import (
	"github.com/avillia/receipt-service/config"
	"github.com/avillia/receipt-service/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db            *DB
	cacheCapacity int
	logger        *zap.Logger
}

// NewRepositoryFactory opens the database and creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryWithDB(db, cfg.RenderCache.Capacity, logger), nil
}

// NewRepositoryFactoryWithDB builds a factory over an existing pool
func NewRepositoryFactoryWithDB(db *DB, cacheCapacity int, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, cacheCapacity: cacheCapacity, logger: logger}
}

// NewRepositories creates all repository instances. RenderCache is the
// Postgres store; callers may swap it for another backend.
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:       NewUserRepository(f.db, f.logger),
		Roles:       NewRoleRepository(f.db, f.logger),
		Receipts:    NewReceiptRepository(f.db, f.logger),
		RenderCache: NewRenderCacheRepository(f.db, f.cacheCapacity, f.logger),
		Settings:    NewAppConfigRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
