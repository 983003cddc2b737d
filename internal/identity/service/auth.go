package service

import (
	"context"
	"errors"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/cryptox"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// AuthService is the authentication bridge: it turns a raw username/secret
// pair into a Principal carrying the account's authority set.
type AuthService struct {
	Store store.Store
}

// Authenticate resolves the account and verifies the presented secret against
// the stored argon2 hash. Lookup failure and hash mismatch both surface as
// ErrInvalidCredentials; there are no partial success states.
func (s *AuthService) Authenticate(ctx context.Context, username, secret string) (domain.Principal, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("authentication failed", "username", username)
			return domain.Principal{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", "error", err)
		return domain.Principal{}, err
	}

	if err := cryptox.VerifyPassword(secret, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			// Malformed stored hash. Log the cause but surface the same
			// undifferentiated failure as a wrong secret.
			log.Error("stored password hash is unusable", "user_id", user.ID, "error", err)
		} else {
			log.Warn("authentication failed", "username", username)
		}
		return domain.Principal{}, ErrInvalidCredentials
	}

	return domain.Principal{
		Username:    user.Username,
		Authorities: user.RoleNames(),
	}, nil
}
