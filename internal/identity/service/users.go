package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/events"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/cryptox"
	"github.com/ironbark-dev/ironbark/pkg/idx"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// UserView is the redacted projection returned to callers: no password
// material, only role names.
type UserView struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func viewOf(u domain.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Roles: u.RoleNames()}
}

// UserService owns UserAccount records and the role-based policy over them.
// Mutations commit account and role-edge changes in one transaction; event
// publishes happen after commit and are best-effort.
type UserService struct {
	Store     store.Store
	Publisher events.Publisher
}

// CreateUser registers a new account. Requested roles are resolved by name
// against the immutable reference data; unknown names are silently skipped,
// and an empty resolution falls back to the baseline ROLE_USER.
func (s *UserService) CreateUser(ctx context.Context, username, password string, requestedRoles []string) (UserView, error) {
	log := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return UserView{}, ErrInvalidInput
	}

	// 1. Verify username availability.
	_, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err == nil {
		return UserView{}, ErrUsernameTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check username availability", "error", err)
		return UserView{}, err
	}

	// 2. Resolve requested roles against existing role identities.
	roles, err := s.resolveRoles(ctx, requestedRoles)
	if err != nil {
		return UserView{}, err
	}

	// 3. Hash the password.
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return UserView{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
	}

	// 4. Persist account and role edges atomically.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return UserView{}, ErrUsernameTaken
		}
		log.Error("failed to create user", "username", username, "error", err)
		return UserView{}, err
	}

	log.Info("user created", "user_id", user.ID, "username", username)

	// 5. Fire-and-forget event, strictly after commit.
	s.publish(ctx, events.TopicUserCreated, username, events.UserCreated{
		ID:        user.ID,
		CreatedAt: time.Now().UTC(),
		Email:     username,
	})

	return viewOf(user), nil
}

// GetAll returns every account as a redacted view. Admin-only; the transport
// layer gates it before the call.
func (s *UserService) GetAll(ctx context.Context) ([]UserView, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = viewOf(u)
	}
	return views, nil
}

// GetByUsername returns one account, subject to the admin-or-self policy.
func (s *UserService) GetByUsername(ctx context.Context, actor domain.Principal, username string) (UserView, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserView{}, ErrNotFound
		}
		return UserView{}, err
	}

	if !canView(actor, user.Username) {
		slogx.FromContext(ctx).Warn("view denied",
			"actor", actor.Username, "target", username)
		return UserView{}, ErrAccessDenied
	}
	return viewOf(user), nil
}

// DeleteByID removes an account. The existence check runs before the policy
// check, so an unauthorized caller can learn whether the id exists; that
// ordering is the current contract and stays until a product decision says
// otherwise.
func (s *UserService) DeleteByID(ctx context.Context, actor domain.Principal, id string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !canDelete(actor, user.Username) {
		log.Warn("delete denied", "actor", actor.Username, "target_id", id)
		return ErrAccessDenied
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().DeleteUser(ctx, user.ID)
	})
	if err != nil {
		log.Error("failed to delete user", "user_id", id, "error", err)
		return err
	}

	log.Info("user deleted", "user_id", id, "actor", actor.Username)
	return nil
}

// ElevateToAdmin attaches the existing admin role to the account. Membership
// is a set: elevating twice leaves a single association.
func (s *UserService) ElevateToAdmin(ctx context.Context, username string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	adminRole, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Error("admin role missing from reference data")
			return ErrNotFound
		}
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().AddRole(ctx, user.ID, adminRole.ID)
	})
	if err != nil {
		log.Error("failed to grant admin role", "user_id", user.ID, "error", err)
		return err
	}

	log.Info("admin role granted", "user_id", user.ID, "username", username)

	s.publish(ctx, events.TopicAdminGrant, username, events.AdminGranted{
		Email:     username,
		Message:   "Your user has been granted administrator permissions.",
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *UserService) resolveRoles(ctx context.Context, requested []string) ([]domain.Role, error) {
	log := slogx.FromContext(ctx)

	var roles []domain.Role
	for _, name := range requested {
		role, err := s.Store.Roles().GetRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("skipping unknown role", "role", name)
				continue
			}
			return nil, err
		}
		roles = append(roles, role)
	}

	if len(roles) == 0 {
		baseline, err := s.Store.Roles().GetRoleByName(ctx, domain.RoleUser)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Error("baseline role missing from reference data")
				return nil, ErrNotFound
			}
			return nil, err
		}
		roles = []domain.Role{baseline}
	}
	return roles, nil
}

// publish sends a domain event to the sink. Failures are logged and dropped:
// the owning transaction already committed, so delivery is at-most-once.
func (s *UserService) publish(ctx context.Context, topic, key string, payload any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, topic, key, payload); err != nil {
		slogx.FromContext(ctx).Error("event publish failed", "topic", topic, "error", err)
	}
}
