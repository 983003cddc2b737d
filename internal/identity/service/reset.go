package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/internal/identity/events"
	"github.com/ironbark-dev/ironbark/internal/identity/store"
	"github.com/ironbark-dev/ironbark/pkg/cryptox"
	"github.com/ironbark-dev/ironbark/pkg/idx"
	"github.com/ironbark-dev/ironbark/pkg/slogx"
)

// PasswordResetService drives the reset-token lifecycle:
// Created -> Consumed (row deleted on successful reset), with expiry derived
// at read time rather than stored or swept. Two racing resets on the same
// valid token can both pass validation before either deletes the row; the
// store has no lock preventing it. Known property, kept as-is.
type PasswordResetService struct {
	Store     store.Store
	Publisher events.Publisher

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *PasswordResetService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateToken issues a fresh reset token for the account. Only the opaque
// token value leaves the service; the persisted record stays internal.
func (s *PasswordResetService) CreateToken(ctx context.Context, username string) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the account.
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		log.Error("failed to fetch user", "error", err)
		return "", err
	}

	// 2. Mint and persist the token.
	token := domain.PasswordResetToken{
		ID:        idx.New().String(),
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(domain.ResetTokenTTL),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.ResetTokens().CreateResetToken(ctx, token)
	})
	if err != nil {
		log.Error("failed to store reset token", "user_id", user.ID, "error", err)
		return "", err
	}

	log.Info("reset token issued", "user_id", user.ID, "expires_at", token.ExpiresAt)

	// 3. Hand the token to the mail pipeline, after commit.
	s.publish(ctx, events.TopicPasswordReset, username, events.PasswordResetRequested{
		Token:          token.Token,
		ExpirationTime: token.ExpiresAt,
		Username:       username,
	})

	return token.Token, nil
}

// ResetPassword consumes a token and overwrites the account password.
// Unknown token, username mismatch and expiry all surface as the single
// ErrTokenInvalidOrExpired so callers cannot enumerate which held.
func (s *PasswordResetService) ResetPassword(ctx context.Context, username, token, newPassword string) error {
	log := slogx.FromContext(ctx)

	if username == "" || token == "" || newPassword == "" {
		return ErrInvalidInput
	}

	// 1. Look up the token and its owning account.
	record, err := s.Store.ResetTokens().GetResetTokenByValue(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("reset attempted with unknown token", "username", username)
			return ErrTokenInvalidOrExpired
		}
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenInvalidOrExpired
		}
		return err
	}

	// 2. Validate ownership and expiry; same error either way.
	if user.Username != username || record.ExpiredAt(s.now()) {
		log.Warn("reset attempted with invalid or expired token", "username", username)
		return ErrTokenInvalidOrExpired
	}

	// 3. Hash the replacement password.
	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return err
	}

	// 4. Overwrite the password and consume the token atomically.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
			return err
		}
		return tx.ResetTokens().DeleteResetToken(ctx, record.ID)
	})
	if err != nil {
		log.Error("failed to apply password reset", "user_id", user.ID, "error", err)
		return err
	}

	log.Info("password reset applied", "user_id", user.ID)
	return nil
}

func (s *PasswordResetService) publish(ctx context.Context, topic, key string, payload any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, topic, key, payload); err != nil {
		slogx.FromContext(ctx).Error("event publish failed", "topic", topic, "error", err)
	}
}
