package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akilli-icerik/apiserver/types"
)

// TokenRepository handles persistence for bearer tokens.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) CreateToken(ctx context.Context, token types.Token) (types.Token, error) {
	token.CreatedAt = time.Now()

	const query = `
		INSERT INTO tokens (access_token, user_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		token.AccessToken,
		token.UserID,
		token.CreatedAt,
	).Scan(&token.ID); err != nil {
		return types.Token{}, err
	}
	return token, nil
}

// GetUserByToken resolves a raw token string to its owning user by exact
// match. Unknown tokens yield ErrNotFound.
func (r *TokenRepository) GetUserByToken(ctx context.Context, accessToken string) (types.User, error) {
	const query = `
		SELECT u.id, u.user_id_str, u.email, u.password_hash, u.created_at
		FROM tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.access_token = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, accessToken).Scan(
		&user.ID,
		&user.UserIDStr,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
