package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"murmur-chat/internal/domain/message"
	murmur_errors "murmur-chat/pkg/errors"

	"github.com/google/uuid"
)

type PostgresMessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

const messageColumns = `id, sender_id, receiver_id, body, kind, media_url, reply_to_id,
	one_time_view, viewed_at, is_read, read_at, is_deleted, created_at`

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, kind, media_url, reply_to_id, one_time_view, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, m.ID, m.SenderID, m.ReceiverID, m.Body, m.Kind, m.MediaURL, m.ReplyToID, m.OneTimeView, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return murmur_errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return message.Message{}, murmur_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBetween(ctx context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE ((m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1))
		  AND NOT EXISTS (
			SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = $3
		  )
		ORDER BY m.created_at ASC
	`, userA, userB, viewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *PostgresMessageRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]message.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE (m.sender_id = $1 OR m.receiver_id = $1)
		  AND NOT EXISTS (
			SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = $1
		  )
		ORDER BY m.created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) (time.Time, error) {
	var stored time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE messages
		SET is_read = TRUE,
		    read_at = COALESCE(read_at, $2),
		    viewed_at = CASE WHEN one_time_view AND viewed_at IS NULL THEN $2 ELSE viewed_at END
		WHERE id = $1
		RETURNING read_at
	`, id, readAt).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, murmur_errors.ErrNotFound
		}
		return time.Time{}, err
	}
	return stored, nil
}

func (r *PostgresMessageRepository) MarkConversationRead(ctx context.Context, sender, receiver uuid.UUID, readAt time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages
		SET is_read = TRUE,
		    read_at = $3,
		    viewed_at = CASE WHEN one_time_view AND viewed_at IS NULL THEN $3 ELSE viewed_at END
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE
		RETURNING id
	`, sender, receiver, readAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ToggleReaction deletes the (message, user, emoji) row if present and
// inserts it otherwise, in one statement, so duplicate live deliveries
// cannot produce stuck state beyond an even number of flips.
func (r *PostgresMessageRepository) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	var added bool
	err := r.db.QueryRowContext(ctx, `
		WITH removed AS (
			DELETE FROM message_reactions
			WHERE message_id = $1 AND user_id = $2 AND emoji = $3
			RETURNING 1
		), inserted AS (
			INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM inserted)
	`, messageID, userID, emoji, time.Now().UTC()).Scan(&added)
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *PostgresMessageRepository) ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []message.Reaction
	for rows.Next() {
		var re message.Reaction
		if err := rows.Scan(&re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, re)
	}
	return reactions, rows.Err()
}

func (r *PostgresMessageRepository) Tombstone(ctx context.Context, id uuid.UUID, body string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_deleted = TRUE, body = $2, media_url = NULL WHERE id = $1
	`, id, body)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return murmur_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) HideFor(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_hidden (message_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, id, userID, time.Now().UTC())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (message.Message, error) {
	var m message.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Kind, &m.MediaURL, &m.ReplyToID,
		&m.OneTimeView, &m.ViewedAt, &m.IsRead, &m.ReadAt, &m.IsDeleted, &m.CreatedAt,
	)
	return m, err
}

func collectMessages(rows *sql.Rows) ([]message.Message, error) {
	var messages []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
