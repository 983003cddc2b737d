package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/events"
	"github.com/ironbark-dev/ironbark/internal/identity/store/drivers/memory"
	"github.com/ironbark-dev/ironbark/pkg/cryptox"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Topic   string
	Key     string
	Payload any
}

func (p *capturePublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *capturePublisher) byTopic(topic string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedEvent
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func admin() domain.Principal {
	return domain.Principal{Username: "root", Authorities: []string{domain.RoleAdmin}}
}

func regular(username string) domain.Principal {
	return domain.Principal{Username: username, Authorities: []string{domain.RoleUser}}
}

func TestUserServiceCreateUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("assigns baseline role when none requested", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		view, err := svc.CreateUser(ctx, "alice", "s3cret", nil)
		require.NoError(t, err)
		require.NotEmpty(t, view.ID)
		require.Equal(t, "alice", view.Username)
		require.Equal(t, []string{domain.RoleUser}, view.Roles)
	})

	t.Run("skips unknown roles and falls back to baseline", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		view, err := svc.CreateUser(ctx, "bob", "s3cret", []string{"ROLE_WIZARD"})
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleUser}, view.Roles)
	})

	t.Run("keeps known requested roles", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		view, err := svc.CreateUser(ctx, "carol", "s3cret", []string{domain.RoleAdmin})
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleAdmin}, view.Roles)
	})

	t.Run("rejects duplicate usernames", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		_, err := svc.CreateUser(ctx, "dave", "s3cret", nil)
		require.NoError(t, err)

		_, err = svc.CreateUser(ctx, "dave", "other", nil)
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("rejects blank username or password", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		_, err := svc.CreateUser(ctx, "  ", "s3cret", nil)
		require.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.CreateUser(ctx, "erin", "", nil)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("fails when baseline role is missing", func(t *testing.T) {
		t.Parallel()
		st := memory.NewStore()
		st.DeleteRoleByName(domain.RoleUser)
		svc := &UserService{Store: st}

		_, err := svc.CreateUser(ctx, "frank", "s3cret", nil)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stores a hash and never the plaintext", func(t *testing.T) {
		t.Parallel()
		st := memory.NewStore()
		svc := &UserService{Store: st}

		_, err := svc.CreateUser(ctx, "grace", "s3cret", nil)
		require.NoError(t, err)

		stored, err := st.Users().GetUserByUsername(ctx, "grace")
		require.NoError(t, err)
		require.NotEqual(t, "s3cret", stored.PasswordHash)
		require.NoError(t, cryptox.VerifyPassword("s3cret", stored.PasswordHash))
	})

	t.Run("publishes a user-created event after commit", func(t *testing.T) {
		t.Parallel()
		pub := &capturePublisher{}
		svc := &UserService{Store: memory.NewStore(), Publisher: pub}

		_, err := svc.CreateUser(ctx, "heidi", "s3cret", nil)
		require.NoError(t, err)

		published := pub.byTopic(events.TopicUserCreated)
		require.Len(t, published, 1)
		require.Equal(t, "heidi", published[0].Key)
	})
}

func TestUserServiceGetByUsername(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &UserService{Store: memory.NewStore()}

	_, err := svc.CreateUser(ctx, "alice", "s3cret", nil)
	require.NoError(t, err)

	t.Run("admin can view anyone", func(t *testing.T) {
		view, err := svc.GetByUsername(ctx, admin(), "alice")
		require.NoError(t, err)
		require.Equal(t, "alice", view.Username)
	})

	t.Run("owner can view self", func(t *testing.T) {
		view, err := svc.GetByUsername(ctx, regular("alice"), "alice")
		require.NoError(t, err)
		require.Equal(t, "alice", view.Username)
	})

	t.Run("other users are denied", func(t *testing.T) {
		_, err := svc.GetByUsername(ctx, regular("mallory"), "alice")
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		_, err := svc.GetByUsername(ctx, admin(), "nobody")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserServiceDeleteByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("owner deletes own account", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}
		view, err := svc.CreateUser(ctx, "alice", "s3cret", nil)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteByID(ctx, regular("alice"), view.ID))

		_, err = svc.GetByUsername(ctx, admin(), "alice")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("admin deletes any account", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}
		view, err := svc.CreateUser(ctx, "bob", "s3cret", nil)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteByID(ctx, admin(), view.ID))
	})

	t.Run("other users are denied", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}
		view, err := svc.CreateUser(ctx, "carol", "s3cret", nil)
		require.NoError(t, err)

		err = svc.DeleteByID(ctx, regular("mallory"), view.ID)
		require.ErrorIs(t, err, ErrAccessDenied)

		// Target survives the denied attempt.
		_, err = svc.GetByUsername(ctx, admin(), "carol")
		require.NoError(t, err)
	})

	t.Run("missing id reports not found before the policy check", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		err := svc.DeleteByID(ctx, regular("mallory"), "no-such-id")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserServiceElevateToAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("grants the admin role and publishes", func(t *testing.T) {
		t.Parallel()
		pub := &capturePublisher{}
		svc := &UserService{Store: memory.NewStore(), Publisher: pub}

		_, err := svc.CreateUser(ctx, "alice", "s3cret", nil)
		require.NoError(t, err)

		require.NoError(t, svc.ElevateToAdmin(ctx, "alice"))

		view, err := svc.GetByUsername(ctx, admin(), "alice")
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleAdmin, domain.RoleUser}, view.Roles)

		published := pub.byTopic(events.TopicAdminGrant)
		require.Len(t, published, 1)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}

		_, err := svc.CreateUser(ctx, "bob", "s3cret", nil)
		require.NoError(t, err)

		require.NoError(t, svc.ElevateToAdmin(ctx, "bob"))
		require.NoError(t, svc.ElevateToAdmin(ctx, "bob"))

		view, err := svc.GetByUsername(ctx, admin(), "bob")
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleAdmin, domain.RoleUser}, view.Roles)
	})

	t.Run("unknown username is not found", func(t *testing.T) {
		t.Parallel()
		svc := &UserService{Store: memory.NewStore()}
		require.ErrorIs(t, svc.ElevateToAdmin(ctx, "nobody"), ErrNotFound)
	})
}

func TestUserServiceGetAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := &UserService{Store: memory.NewStore()}

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.CreateUser(ctx, name, "s3cret", nil)
		require.NoError(t, err)
	}

	views, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	for _, v := range views {
		require.NotEmpty(t, v.ID)
		require.NotEmpty(t, v.Username)
	}
}
