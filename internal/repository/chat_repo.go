package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConversationNotFound is returned when no conversation matches the id
// and owner.
var ErrConversationNotFound = errors.New("conversation not found")

type ChatRepository interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error)
	UpdateConversationTitle(ctx context.Context, conversationID, userID, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]model.Message, error)
	CountMessages(ctx context.Context, conversationID, userID string) (int, error)
}

type chatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) ChatRepository {
	return &chatRepo{pool: pool}
}

func (r *chatRepo) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	const q = `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at
	`
	var conv model.Conversation
	err := r.pool.QueryRow(ctx, q, userID, title).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &conv, nil
}

func (r *chatRepo) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	var conv model.Conversation
	err := r.pool.QueryRow(ctx, q, conversationID, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return &conv, nil
}

func (r *chatRepo) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	const q = `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return convs, nil
}

func (r *chatRepo) UpdateConversationTitle(ctx context.Context, conversationID, userID, title string) (*model.Conversation, error) {
	const q = `
		UPDATE conversations
		SET title = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
		RETURNING id, user_id, title, created_at, updated_at
	`
	var conv model.Conversation
	err := r.pool.QueryRow(ctx, q, title, conversationID, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("updating conversation: %w", err)
	}
	return &conv, nil
}

func (r *chatRepo) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	const q = `
		DELETE FROM conversations
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.pool.Exec(ctx, q, conversationID, userID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *chatRepo) CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error) {
	const q = `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, role, content, created_at
	`
	var msg model.Message
	err := r.pool.QueryRow(ctx, q, conversationID, role, content).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &msg, nil
}

func (r *chatRepo) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]model.Message, error) {
	if err := r.checkOwnership(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	// Fetch the latest messages, then reverse to chronological order.
	const q = `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepo) CountMessages(ctx context.Context, conversationID, userID string) (int, error) {
	if err := r.checkOwnership(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	const q = `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, q, conversationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

func (r *chatRepo) checkOwnership(ctx context.Context, conversationID, userID string) error {
	const q = `SELECT id FROM conversations WHERE id = $1 AND user_id = $2`
	var id string
	if err := r.pool.QueryRow(ctx, q, conversationID, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConversationNotFound
		}
		return fmt.Errorf("verifying conversation ownership: %w", err)
	}
	return nil
}
