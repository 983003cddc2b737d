package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
)

func TestCustomizeClaims(t *testing.T) {
	t.Parallel()

	t.Run("attaches authorities for an authenticated principal", func(t *testing.T) {
		ic := &IssuanceContext{
			Principal: &domain.Principal{
				Username:    "alice",
				Authorities: []string{domain.RoleAdmin, domain.RoleUser},
			},
			Claims: map[string]any{"sub": "alice"},
		}

		CustomizeClaims(ic)

		require.Equal(t, []string{domain.RoleAdmin, domain.RoleUser}, ic.Claims[AuthoritiesClaim])
		require.Equal(t, "alice", ic.Claims["sub"])
	})

	t.Run("leaves claims untouched without a principal", func(t *testing.T) {
		ic := &IssuanceContext{Claims: map[string]any{"sub": "svc"}}

		CustomizeClaims(ic)

		require.NotContains(t, ic.Claims, AuthoritiesClaim)
		require.Len(t, ic.Claims, 1)
	})

	t.Run("leaves claims untouched for an empty authority set", func(t *testing.T) {
		ic := &IssuanceContext{
			Principal: &domain.Principal{Username: "alice"},
			Claims:    map[string]any{},
		}

		CustomizeClaims(ic)

		require.NotContains(t, ic.Claims, AuthoritiesClaim)
	})

	t.Run("is deterministic", func(t *testing.T) {
		principal := &domain.Principal{Username: "alice", Authorities: []string{domain.RoleUser}}

		first := &IssuanceContext{Principal: principal, Claims: map[string]any{}}
		second := &IssuanceContext{Principal: principal, Claims: map[string]any{}}

		CustomizeClaims(first)
		CustomizeClaims(second)

		require.Equal(t, first.Claims, second.Claims)
	})

	t.Run("tolerates nil", func(t *testing.T) {
		require.NotPanics(t, func() { CustomizeClaims(nil) })
	})
}
