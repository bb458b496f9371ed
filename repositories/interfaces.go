package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/internal/runtimeconfig"
	"github.com/avillia/receipt-service/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")

	// ErrCapacityRace is returned by a render cache store when a concurrent
	// writer invalidated the eviction decision. The write did not happen and
	// may be retried.
	ErrCapacityRace = errors.New("render cache capacity race")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create inserts a user; ErrDuplicate when the login is taken
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByLogin retrieves a user by login
	GetByLogin(ctx context.Context, login string) (*models.User, error)

	// ListGrants returns the serialized grants of every role held by the user
	ListGrants(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RoleRepository handles roles and their accesses
type RoleRepository interface {
	// EnsureExists returns the named role, creating it when absent
	EnsureExists(ctx context.Context, name string) (*models.Role, error)

	// GetByName retrieves a role by name
	GetByName(ctx context.Context, name string) (*models.Role, error)

	// Assign links a user to a role; false when the link already existed
	Assign(ctx context.Context, userID, roleID uuid.UUID) (bool, error)

	// Grant adds an access to a role; false when the role already had it
	Grant(ctx context.Context, roleID uuid.UUID, grant auth.Grant) (bool, error)
}

// ReceiptRepository handles receipts and their items
type ReceiptRepository interface {
	// Create inserts a receipt with its items
	Create(ctx context.Context, receipt *models.Receipt) error

	// GetByID retrieves a receipt with its items and issuer name
	GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)

	// List returns the total number of matches and the requested page, newest first
	List(ctx context.Context, filter models.ReceiptFilter) (int, []*models.Receipt, error)

	// Delete removes a receipt, its items and its cached renderings
	Delete(ctx context.Context, id uuid.UUID) error
}

// RenderCacheRepository stores rendered receipt texts under a fixed capacity.
// Implementations evict the globally oldest rows inside the same atomic unit
// as the insert, and replace the text in place when the key already exists.
type RenderCacheRepository interface {
	// Get returns the cached text; ok is false on a miss
	Get(ctx context.Context, receiptID uuid.UUID, fingerprint string) (text string, ok bool, err error)

	// Put stores an entry; ErrCapacityRace when a concurrent writer interfered
	Put(ctx context.Context, entry *models.RenderCacheEntry) error

	// DeleteForReceipt drops every entry of a receipt
	DeleteForReceipt(ctx context.Context, receiptID uuid.UUID) error

	// Count returns the number of stored entries
	Count(ctx context.Context) (int, error)

	// Capacity returns the maximum number of entries
	Capacity() int
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users       UserRepository
	Roles       RoleRepository
	Receipts    ReceiptRepository
	RenderCache RenderCacheRepository
	Settings    runtimeconfig.Store
}
