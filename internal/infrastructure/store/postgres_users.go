package store

import (
	"context"
	"time"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

const userColumns = `id, username, email, password_hash, is_active, is_superuser, created_at, updated_at`

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := t.tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *pgTx) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := t.tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = $1`, username); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *pgTx) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`, username, email)
	return exists, translate(err)
}

func (t *pgTx) InsertUser(ctx context.Context, u *model.User) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :email, :password_hash, :is_active, :is_superuser, :created_at, :updated_at)`, u)
	return translate(err)
}

func (t *pgTx) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO token_blacklist (jti, expires_at, revoked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (jti) DO NOTHING`, jti, expiresAt)
	if err != nil {
		return false, translate(err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at < $1`, now)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

func (t *pgTx) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := t.tx.GetContext(ctx, &revoked, `SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE jti = $1)`, jti)
	return revoked, translate(err)
}
