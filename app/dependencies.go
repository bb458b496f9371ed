package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/config"
	"github.com/avillia/receipt-service/internal/auth"
	"github.com/avillia/receipt-service/middleware"
	"github.com/avillia/receipt-service/repositories"
	"github.com/avillia/receipt-service/repositories/memory"
	"github.com/avillia/receipt-service/repositories/postgres"
	"github.com/avillia/receipt-service/repositories/rediscache"
	"github.com/avillia/receipt-service/services"
	"github.com/avillia/receipt-service/services/identity"
	"github.com/avillia/receipt-service/services/receipts"
	"github.com/avillia/receipt-service/services/rendercache"
	"github.com/avillia/receipt-service/session"
)

// Built-in roles ensured at startup
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repositories *repositories.Repositories
	TxManager    repositories.TransactionManager

	// Session tokens
	Issuer   *session.Issuer
	Verifier *session.Verifier

	// Services
	RenderCache *rendercache.Cache
	Identity    *identity.Service
	Receipts    *receipts.Service

	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos := deps.RepoFactory.NewRepositories()
	if err := deps.initRenderStore(ctx, cfg, repos); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize render cache: %w", err)
	}

	if err := deps.wire(repos, deps.RepoFactory.GetTransactionManager()); err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("render_cache_backend", cfg.RenderCache.Backend),
		zap.Int("render_cache_capacity", cfg.RenderCache.Capacity))
	return deps, nil
}

// NewDependenciesWithRepositories wires services over already built
// repositories. Infrastructure fields stay nil.
func NewDependenciesWithRepositories(
	cfg *config.Config,
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	logger *zap.Logger,
) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	if err := deps.wire(repos, txMgr); err != nil {
		return nil, err
	}
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := d.DB.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return err
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRenderStore replaces the Postgres render cache store when another
// backend is configured
func (d *Dependencies) initRenderStore(ctx context.Context, cfg *config.Config, repos *repositories.Repositories) error {
	switch cfg.RenderCache.Backend {
	case config.RenderCacheBackendPostgres:
		// NewRepositories already built it
	case config.RenderCacheBackendRedis:
		client, err := rediscache.NewClient(ctx, cfg.Redis, d.Logger)
		if err != nil {
			return err
		}
		d.Redis = client
		repos.RenderCache = rediscache.NewRenderCache(client, cfg.Redis.KeyPrefix, cfg.RenderCache.Capacity, d.Logger)
	case config.RenderCacheBackendMemory:
		d.Logger.Warn("render cache is process-local; entries are not shared between replicas")
		repos.RenderCache = memory.NewRenderCache(cfg.RenderCache.Capacity)
	default:
		return fmt.Errorf("unknown render cache backend %q", cfg.RenderCache.Backend)
	}
	return nil
}

// wire builds the session, services and middleware layers
func (d *Dependencies) wire(repos *repositories.Repositories, txMgr repositories.TransactionManager) error {
	cfg := d.Config
	d.Repositories = repos
	d.TxManager = txMgr

	sessionCfg := session.Config{
		Secret:    cfg.Auth.JWTSecretKey,
		Algorithm: cfg.Auth.JWTAlgorithm,
	}
	issuer, err := session.NewIssuer(sessionCfg, repos.Settings, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	verifier, err := session.NewVerifier(sessionCfg)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}
	d.Issuer = issuer
	d.Verifier = verifier
	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Logger)

	hasher := identity.NewPasswordHasher(cfg.Auth.PasswordPepper, cfg.Auth.BcryptCost)
	d.Identity = identity.NewService(repos.Users, repos.Roles, issuer, hasher, d.Logger)

	d.RenderCache = rendercache.New(repos.RenderCache, cfg.RenderCache.MaxRetries, d.Logger)
	d.Receipts = receipts.NewService(
		repos.Receipts,
		txMgr,
		d.RenderCache,
		repos.Settings,
		receipts.NewTextRenderer(),
		d.Logger,
	)
	return nil
}

// Bootstrap ensures the built-in roles exist and promotes the configured
// admin login, if any
func (d *Dependencies) Bootstrap(ctx context.Context) error {
	if _, err := d.Identity.EnsureRole(ctx, RoleAdmin, auth.NewGrant(auth.MethodAny, auth.Wildcard)); err != nil {
		return fmt.Errorf("failed to ensure %s role: %w", RoleAdmin, err)
	}
	if _, err := d.Identity.EnsureRole(ctx, RoleCashier, auth.NewGrant(auth.MethodAny, "receipts")); err != nil {
		return fmt.Errorf("failed to ensure %s role: %w", RoleCashier, err)
	}

	login := d.Config.Auth.AdminLogin
	if login == "" {
		return nil
	}
	changed, err := d.Identity.AssignRole(ctx, RoleAdmin, login)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			d.Logger.Warn("admin login not found; sign up first", zap.String("login", login))
			return nil
		}
		return fmt.Errorf("failed to promote admin: %w", err)
	}
	if changed {
		d.Logger.Info("admin role assigned", zap.String("login", login))
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
