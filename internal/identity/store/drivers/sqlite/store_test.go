package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func mustRole(t *testing.T, st *Store, name string) domain.Role {
	t.Helper()
	role, err := st.Roles().GetRoleByName(context.Background(), name)
	require.NoError(t, err)
	return role
}

func TestMigrationsSeedBaselineRoles(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	user := mustRole(t, st, domain.RoleUser)
	require.NotEmpty(t, user.ID)

	admin := mustRole(t, st, domain.RoleAdmin)
	require.NotEmpty(t, admin.ID)
	require.NotEqual(t, user.ID, admin.ID)

	roles, err := st.Roles().ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	_, err = st.Roles().GetRoleByName(ctx, "ROLE_WIZARD")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	baseline := mustRole(t, st, domain.RoleUser)
	admin := mustRole(t, st, domain.RoleAdmin)

	alice := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: "hash-a",
		Roles:        []domain.Role{baseline},
	}
	require.NoError(t, st.Users().CreateUser(ctx, alice))

	t.Run("duplicate username reports already exists", func(t *testing.T) {
		dup := domain.User{
			ID:           idx.New().String(),
			Username:     "alice",
			PasswordHash: "hash-b",
			Roles:        []domain.Role{baseline},
		}
		err := st.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("duplicate id reports already exists", func(t *testing.T) {
		dup := domain.User{ID: alice.ID, Username: "other", PasswordHash: "hash-b"}
		err := st.Users().CreateUser(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookups populate roles", func(t *testing.T) {
		got, err := st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)
		require.Equal(t, []string{domain.RoleUser}, got.RoleNames())

		byID, err := st.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)

		_, err = st.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("AddRole is idempotent", func(t *testing.T) {
		require.NoError(t, st.Users().AddRole(ctx, alice.ID, admin.ID))
		require.NoError(t, st.Users().AddRole(ctx, alice.ID, admin.ID))

		got, err := st.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, []string{domain.RoleAdmin, domain.RoleUser}, got.RoleNames())
	})

	t.Run("UpdatePasswordHash requires an existing row", func(t *testing.T) {
		require.NoError(t, st.Users().UpdatePasswordHash(ctx, alice.ID, "hash-c"))

		got, err := st.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "hash-c", got.PasswordHash)

		err = st.Users().UpdatePasswordHash(ctx, "no-such-id", "hash-d")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ListUsers returns all accounts with roles", func(t *testing.T) {
		bob := domain.User{
			ID:           idx.New().String(),
			Username:     "bob",
			PasswordHash: "hash-b",
			Roles:        []domain.Role{baseline},
		}
		require.NoError(t, st.Users().CreateUser(ctx, bob))

		users, err := st.Users().ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		for _, u := range users {
			require.NotEmpty(t, u.RoleNames())
		}
	})
}

func TestDeleteUserCascadesResetTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	baseline := mustRole(t, st, domain.RoleUser)
	user := domain.User{
		ID:           idx.New().String(),
		Username:     "carol",
		PasswordHash: "hash",
		Roles:        []domain.Role{baseline},
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	token := domain.PasswordResetToken{
		ID:        idx.New().String(),
		Token:     "cascade-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(domain.ResetTokenTTL),
	}
	require.NoError(t, st.ResetTokens().CreateResetToken(ctx, token))

	require.NoError(t, st.Users().DeleteUser(ctx, user.ID))

	_, err := st.Users().GetUserByID(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// The FK cascade removed the token with the account.
	_, err = st.ResetTokens().GetResetTokenByValue(ctx, "cascade-token")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, st.Users().DeleteUser(ctx, user.ID), store.ErrNotFound)
}

func TestResetTokensRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	baseline := mustRole(t, st, domain.RoleUser)
	user := domain.User{
		ID:           idx.New().String(),
		Username:     "dave",
		PasswordHash: "hash",
		Roles:        []domain.Role{baseline},
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	expiresAt := time.Now().UTC().Add(domain.ResetTokenTTL).Truncate(time.Second)
	token := domain.PasswordResetToken{
		ID:        idx.New().String(),
		Token:     "opaque-value",
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, st.ResetTokens().CreateResetToken(ctx, token))

	t.Run("duplicate token value reports already exists", func(t *testing.T) {
		dup := domain.PasswordResetToken{
			ID:        idx.New().String(),
			Token:     "opaque-value",
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		}
		err := st.ResetTokens().CreateResetToken(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookup round-trips the row", func(t *testing.T) {
		got, err := st.ResetTokens().GetResetTokenByValue(ctx, "opaque-value")
		require.NoError(t, err)
		require.Equal(t, token.ID, got.ID)
		require.Equal(t, user.ID, got.UserID)
		require.True(t, got.ExpiresAt.Equal(expiresAt))
	})

	t.Run("delete is single use", func(t *testing.T) {
		require.NoError(t, st.ResetTokens().DeleteResetToken(ctx, token.ID))

		_, err := st.ResetTokens().GetResetTokenByValue(ctx, "opaque-value")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, st.ResetTokens().DeleteResetToken(ctx, token.ID), store.ErrNotFound)
	})
}

func TestClientsRepo(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	expiry := time.Now().UTC().Add(90 * 24 * time.Hour).Truncate(time.Second)
	credential := domain.ClientCredential{
		ID:                    idx.New().String(),
		ClientID:              "web-app",
		ClientSecret:          "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Name:                  "Web Application",
		AuthenticationMethods: []string{"client_secret_basic"},
		GrantTypes:            []string{"authorization_code", "refresh_token"},
		RedirectURIs:          []string{"https://app.example.com/callback"},
		Scopes:                []string{"openid", "profile"},
		ClientSettings: map[string]any{
			"settings.client.require-authorization-consent": true,
		},
		TokenSettings: map[string]any{
			"settings.token.access-token-time-to-live":    30 * time.Minute,
			"settings.token.id-token-signature-algorithm": domain.SigningAlgorithm("RS256"),
			"settings.token.access-token-format":          domain.TokenFormat{Value: "self-contained"},
		},
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		SecretExpiresAt: &expiry,
	}
	require.NoError(t, st.Clients().SaveClient(ctx, credential))

	t.Run("duplicate client_id reports already exists", func(t *testing.T) {
		dup := credential
		dup.ID = idx.New().String()
		err := st.Clients().SaveClient(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("persisted row decodes with typed settings", func(t *testing.T) {
		got, err := st.Clients().GetClientByClientID(ctx, "web-app")
		require.NoError(t, err)
		require.Equal(t, credential.ID, got.ID)
		require.Equal(t, credential.ClientSecret, got.ClientSecret)
		require.Equal(t, credential.AuthenticationMethods, got.AuthenticationMethods)
		require.Equal(t, credential.GrantTypes, got.GrantTypes)
		require.Equal(t, credential.RedirectURIs, got.RedirectURIs)
		require.Equal(t, credential.Scopes, got.Scopes)
		require.Equal(t, credential.ClientSettings, got.ClientSettings)
		require.Equal(t, credential.TokenSettings, got.TokenSettings)
		require.True(t, got.CreatedAt.Equal(credential.CreatedAt))
		require.NotNil(t, got.SecretExpiresAt)
		require.True(t, got.SecretExpiresAt.Equal(expiry))

		byID, err := st.Clients().GetClientByID(ctx, credential.ID)
		require.NoError(t, err)
		require.Equal(t, "web-app", byID.ClientID)
	})

	t.Run("absent rows are not found", func(t *testing.T) {
		_, err := st.Clients().GetClientByClientID(ctx, "unknown")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.Clients().GetClientByID(ctx, "no-such-id")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	baseline := mustRole(t, st, domain.RoleUser)
	user := domain.User{
		ID:           idx.New().String(),
		Username:     "erin",
		PasswordHash: "hash",
		Roles:        []domain.Role{baseline},
	}

	failure := store.ErrSerialization // any error aborts the tx
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	_, err = st.Users().GetUserByUsername(ctx, "erin")
	require.ErrorIs(t, err, store.ErrNotFound)

	// A second transaction on the same store commits normally.
	err = st.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, user)
	})
	require.NoError(t, err)

	got, err := st.Users().GetUserByUsername(ctx, "erin")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}
