package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store/drivers/memory"
)

func TestAuthServiceAuthenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memory.NewStore()
	users := &UserService{Store: st}
	auth := &AuthService{Store: st}

	_, err := users.CreateUser(ctx, "alice", "s3cret", nil)
	require.NoError(t, err)

	t.Run("valid credentials yield a principal with authorities", func(t *testing.T) {
		principal, err := auth.Authenticate(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.Equal(t, "alice", principal.Username)
		require.Equal(t, []string{domain.RoleUser}, principal.Authorities)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user fails identically to a wrong secret", func(t *testing.T) {
		_, wrongSecret := auth.Authenticate(ctx, "alice", "wrong")
		_, unknownUser := auth.Authenticate(ctx, "nobody", "s3cret")
		require.Equal(t, wrongSecret, unknownUser)
		require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	})

	t.Run("authorities follow role grants", func(t *testing.T) {
		require.NoError(t, users.ElevateToAdmin(ctx, "alice"))

		principal, err := auth.Authenticate(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.True(t, principal.IsAdmin())
		require.Equal(t, []string{domain.RoleAdmin, domain.RoleUser}, principal.Authorities)
	})
}
