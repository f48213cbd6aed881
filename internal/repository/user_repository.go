package repository

import (
	"context"
	"database/sql"
	"errors"

	"murmur-chat/internal/domain/user"
	murmur_errors "murmur-chat/pkg/errors"

	"github.com/google/uuid"
)

type PostgresUserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUserRepository) GetProfile(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	var p user.Profile
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, avatar_url FROM users WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.DisplayName, &avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Profile{}, murmur_errors.ErrNotFound
		}
		return user.Profile{}, err
	}
	p.AvatarURL = avatar.String
	return p, nil
}

func (r *PostgresUserRepository) HasBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error) {
	var blocked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_blocks WHERE user_id = $1 AND blocked_user_id = $2)
	`, owner, target).Scan(&blocked)
	if err != nil {
		return false, err
	}
	return blocked, nil
}
