package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "chat-relay/internal/pkg/chat/application/domain"
	repository "chat-relay/internal/pkg/chat/persistence/repository/port"
)

const (
	pgInvalidText         = "22P02"
	pgForeignKeyViolation = "23503"
)

const conversationColumns = `
	SELECT c.id::text, c.title, c.created_at, c.updated_at, c.last_message_at,
	       COALESCE(array_agg(m.user_id ORDER BY m.position) FILTER (WHERE m.user_id IS NOT NULL), '{}') AS members
	FROM chat.conversation c
	LEFT JOIN chat.conversation_member m ON m.conversation_id = c.id`

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

var errNilPool = errors.New("PgChatRepository: nil pool")

func (r *PgChatRepository) ready() error {
	if r == nil || r.pool == nil {
		return errNilPool
	}
	return nil
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c chat.Conversation) error {
	if err := r.ready(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat.conversation (id, title, created_at, updated_at, last_message_at)
			VALUES ($1::uuid, $2, $3, $4, $5)
		`, c.ID, c.Title, c.CreatedAt, c.UpdatedAt, c.LastMessageAt); err != nil {
			return err
		}

		participants := c.Participants()
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"chat", "conversation_member"},
			[]string{"conversation_id", "user_id", "position", "joined_at"},
			pgx.CopyFromSlice(len(participants), func(i int) ([]any, error) {
				p := participants[i]
				return []any{c.ID, p.UserID, p.Position, p.JoinedAt}, nil
			}),
		)
		return err
	})
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, conversationColumns+`
		WHERE c.id = $1::uuid
		GROUP BY c.id`, id)
	c, err := scanConversation(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return c, nil
}

func (r *PgChatRepository) ListConversationsByMember(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, conversationColumns+`
		WHERE c.id IN (SELECT conversation_id FROM chat.conversation_member WHERE user_id = $1)
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []chat.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) UpdateConversationTitle(ctx context.Context, id string, title string, updatedAt time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation SET title = $2, updated_at = $3
		WHERE id = $1::uuid
	`, id, title, updatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNoRows
	}
	return nil
}

func (r *PgChatRepository) DeleteConversation(ctx context.Context, id string) error {
	if err := r.ready(); err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM chat.conversation WHERE id = $1::uuid`, id)
	if err != nil {
		return mapPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNoRows
	}
	return nil
}

func (r *PgChatRepository) IsMember(ctx context.Context, conversationID string, userID string) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.conversation_member
			WHERE conversation_id = $1::uuid AND user_id = $2
		)`, conversationID, userID).Scan(&ok)
	if err != nil {
		if errors.Is(mapPgError(err), repository.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) error {
	if err := r.ready(); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat.message (id, conversation_id, sender_id, content, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		`, m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, `
			UPDATE chat.conversation
			SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
			    updated_at = $2
			WHERE id = $1::uuid
		`, m.ConversationID, m.CreatedAt)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return repository.ErrNoRows
		}
		return nil
	})
	return mapPgError(err)
}

func (r *PgChatRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var m chat.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id, content, created_at
		FROM chat.message WHERE id = $1::uuid
	`, id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &m, nil
}

func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id, content, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, conversationID, lim, offset)
	if err != nil {
		return nil, mapPgError(err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[chat.Message])
	if err != nil {
		return nil, mapPgError(err)
	}
	return msgs, nil
}

func (r *PgChatRepository) DeleteMessage(ctx context.Context, id string) error {
	if err := r.ready(); err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM chat.message WHERE id = $1::uuid`, id)
	if err != nil {
		return mapPgError(err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNoRows
	}
	return nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	if err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt, &c.MemberIDs); err != nil {
		return nil, err
	}
	return &c, nil
}

// mapPgError folds "row absent" shapes (no rows, malformed uuid, dangling
// foreign key) into repository.ErrNoRows.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidText, pgForeignKeyViolation:
			return repository.ErrNoRows
		}
	}
	return err
}
