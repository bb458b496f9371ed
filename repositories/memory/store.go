package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/internal/runtimeconfig"
	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

// Store keeps users, roles and receipts in process memory. It backs local
// development and end-to-end tests; nothing survives a restart.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*models.User
	logins      map[string]uuid.UUID
	roles       map[string]*models.Role
	accesses    map[uuid.UUID]auth.PermissionSet
	memberships map[uuid.UUID]map[uuid.UUID]struct{}
	receipts    map[uuid.UUID]*models.Receipt
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       make(map[uuid.UUID]*models.User),
		logins:      make(map[string]uuid.UUID),
		roles:       make(map[string]*models.Role),
		accesses:    make(map[uuid.UUID]auth.PermissionSet),
		memberships: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		receipts:    make(map[uuid.UUID]*models.Receipt),
	}
}

// NewRepositories returns every repository backed by a fresh store, with
// settings seeded from runtimeconfig.Defaults
func NewRepositories(cacheCapacity int) *repositories.Repositories {
	s := NewStore()
	return &repositories.Repositories{
		Users:       s.Users(),
		Roles:       s.Roles(),
		Receipts:    s.Receipts(),
		RenderCache: NewRenderCache(cacheCapacity),
		Settings:    runtimeconfig.NewStaticProvider(runtimeconfig.Defaults()),
	}
}

// Users returns the user repository view of the store
func (s *Store) Users() repositories.UserRepository { return (*userRepo)(s) }

// Roles returns the role repository view of the store
func (s *Store) Roles() repositories.RoleRepository { return (*roleRepo)(s) }

// Receipts returns the receipt repository view of the store
func (s *Store) Receipts() repositories.ReceiptRepository { return (*receiptRepo)(s) }

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.logins[user.Login]; taken {
		return repositories.ErrDuplicate
	}
	u := *user
	r.users[u.ID] = &u
	r.logins[u.Login] = u.ID
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.logins[login]
	r.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepo) ListGrants(_ context.Context, userID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grants := auth.NewPermissionSet()
	for roleID := range r.memberships[userID] {
		grants = grants.Union(r.accesses[roleID])
	}
	return grants.Strings(), nil
}

type roleRepo Store

func (r *roleRepo) EnsureExists(_ context.Context, name string) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if role, ok := r.roles[name]; ok {
		out := *role
		return &out, nil
	}
	role := models.NewRole(name)
	r.roles[name] = role
	r.accesses[role.ID] = auth.NewPermissionSet()
	out := *role
	return &out, nil
}

func (r *roleRepo) GetByName(_ context.Context, name string) (*models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *role
	return &out, nil
}

func (r *roleRepo) Assign(_ context.Context, userID, roleID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return false, repositories.ErrNotFound
	}
	if _, ok := r.accesses[roleID]; !ok {
		return false, repositories.ErrNotFound
	}
	roles := r.memberships[userID]
	if roles == nil {
		roles = make(map[uuid.UUID]struct{})
		r.memberships[userID] = roles
	}
	if _, ok := roles[roleID]; ok {
		return false, nil
	}
	roles[roleID] = struct{}{}
	return true, nil
}

func (r *roleRepo) Grant(_ context.Context, roleID uuid.UUID, grant auth.Grant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.accesses[roleID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if set.Contains(grant) {
		return false, nil
	}
	set.Add(grant)
	return true, nil
}

type receiptRepo Store

func (r *receiptRepo) Create(_ context.Context, receipt *models.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[receipt.UserID]; !ok {
		return repositories.ErrNotFound
	}
	if _, ok := r.receipts[receipt.ID]; ok {
		return repositories.ErrDuplicate
	}
	r.receipts[receipt.ID] = cloneReceipt(receipt)
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	receipt, ok := r.receipts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.withIssuer(receipt), nil
}

func (r *receiptRepo) List(_ context.Context, filter models.ReceiptFilter) (int, []*models.Receipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Receipt
	for _, receipt := range r.receipts {
		if matches(receipt, filter) {
			matched = append(matched, receipt)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	page := make([]*models.Receipt, 0)
	for i := filter.Offset; i < total && (filter.Limit <= 0 || len(page) < filter.Limit); i++ {
		page = append(page, r.withIssuer(matched[i]))
	}
	return total, page, nil
}

func (r *receiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.receipts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.receipts, id)
	return nil
}

// withIssuer copies a stored receipt and fills in the owner's name
func (r *receiptRepo) withIssuer(receipt *models.Receipt) *models.Receipt {
	out := cloneReceipt(receipt)
	if u, ok := r.users[receipt.UserID]; ok {
		out.IssuerName = u.Name
	}
	return out
}

func matches(receipt *models.Receipt, f models.ReceiptFilter) bool {
	if receipt.UserID != f.UserID {
		return false
	}
	if f.CreatedAfter != nil && receipt.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && receipt.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.IsCashless != nil && receipt.IsCashlessPayment != *f.IsCashless {
		return false
	}
	total := receipt.Total()
	if f.MinTotal != nil && total.LessThan(*f.MinTotal) {
		return false
	}
	if f.MaxTotal != nil && total.GreaterThan(*f.MaxTotal) {
		return false
	}
	return true
}

func cloneReceipt(receipt *models.Receipt) *models.Receipt {
	out := *receipt
	out.Items = append([]models.ReceiptItem(nil), receipt.Items...)
	return &out
}

// TransactionManager runs functions directly. Each memory repository call is
// atomic on its own; there is nothing to roll back.
type TransactionManager struct{}

// NewTransactionManager creates a pass-through transaction manager
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// Begin returns a transaction whose Commit and Rollback do nothing
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return noopTx{ctx: ctx}, nil
}

// InTransaction executes fn with a no-op transaction
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, noopTx{ctx: ctx})
}

type noopTx struct {
	ctx context.Context
}

func (noopTx) Commit() error              { return nil }
func (noopTx) Rollback() error            { return nil }
func (t noopTx) Context() context.Context { return t.ctx }
