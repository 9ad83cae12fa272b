package repository

import (
	"context"
	"database/sql"
	"fmt"

	"app/internal/model"
)

type DLQRepository interface {
	Create(ctx context.Context, message *model.DeadLetterMessage) error
	List(ctx context.Context, queueName string, limit int) ([]model.DeadLetterMessage, error)
}

type dlqRepository struct {
	db *sql.DB
}

func NewDLQRepository(db *sql.DB) DLQRepository {
	return &dlqRepository{db: db}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	query := `
        INSERT INTO dead_letter_messages (queue_name, message_id, payload, status)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.db.ExecContext(
		ctx,
		query,
		message.QueueName,
		message.MessageID,
		message.Payload,
		message.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting dead letter message: %w", err)
	}
	return nil
}

func (r *dlqRepository) List(ctx context.Context, queueName string, limit int) ([]model.DeadLetterMessage, error) {
	query := `
        SELECT id, queue_name, message_id, payload, status, created_at, updated_at
        FROM dead_letter_messages
        WHERE queue_name = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.QueryContext(ctx, query, queueName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dead letter messages: %w", err)
	}
	defer rows.Close()

	var messages []model.DeadLetterMessage
	for rows.Next() {
		var msg model.DeadLetterMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.QueueName,
			&msg.MessageID,
			&msg.Payload,
			&msg.Status,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning dead letter row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dead letter rows: %w", err)
	}
	return messages, nil
}
