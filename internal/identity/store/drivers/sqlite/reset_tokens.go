package sqlite

import (
	"context"
	"time"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
)

type resetTokensRepo struct {
	q querier
}

func (r *resetTokensRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO reset_tokens (id, token, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Token, t.UserID, t.ExpiresAt, time.Now().UTC(),
	)
	return mapAlreadyExists(err)
}

func (r *resetTokensRepo) GetResetTokenByValue(ctx context.Context, token string) (domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.q.QueryRowContext(ctx,
		`SELECT id, token, user_id, expires_at, created_at
		 FROM reset_tokens WHERE token = ?`, token).
		Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *resetTokensRepo) DeleteResetToken(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reset_tokens WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}
