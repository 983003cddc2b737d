package store

import (
	"context"
	"errors"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrSerialization reports that a client settings map could not be
	// encoded to or decoded from its persisted JSON form.
	ErrSerialization = errors.New("store: settings serialization failed")
)

// Store is the root data access interface. Concrete drivers (sqlite, memory)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a Tx boundary so multi-aggregate mutations (account + role
// edge, token + account) commit as one unit.
type Store interface {
	Users() Users
	Roles() Roles
	Clients() Clients
	ResetTokens() ResetTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Repository
	// calls inside fn must go through the Tx, not the outer Store.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new account together with its role edges
	// (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user with roles populated.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is the lookup used during authentication.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns all accounts with roles populated, newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// AddRole attaches an existing role to a user. Attaching a role the
	// user already holds is a no-op (idempotent membership).
	AddRole(ctx context.Context, userID, roleID string) error

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// DeleteUser removes the account; role edges and reset tokens cascade.
	DeleteUser(ctx context.Context, userID string) error
}

type Roles interface {
	// GetRoleByName fetches a role by its authority string.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// ListRoles returns all roles in the system.
	ListRoles(ctx context.Context) ([]domain.Role, error)
}

type Clients interface {
	// SaveClient persists a client credential as one flattened row.
	SaveClient(ctx context.Context, c domain.ClientCredential) error

	// GetClientByClientID fetches by the external client_id key.
	GetClientByClientID(ctx context.Context, clientID string) (domain.ClientCredential, error)

	// GetClientByID fetches by internal id.
	GetClientByID(ctx context.Context, id string) (domain.ClientCredential, error)
}

type ResetTokens interface {
	// CreateResetToken stores a freshly issued reset token.
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// GetResetTokenByValue fetches a token row by its opaque value,
	// regardless of expiry; callers decide what stale means.
	GetResetTokenByValue(ctx context.Context, token string) (domain.PasswordResetToken, error)

	// DeleteResetToken removes a consumed token (single use).
	DeleteResetToken(ctx context.Context, id string) error
}
