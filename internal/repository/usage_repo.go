package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository persists per-user usage counters. The key is the user id,
// so two accounts on the same device never share a counter.
type UsageRepository interface {
	// Get returns the stored record for the user, or nil when none exists.
	Get(ctx context.Context, userID string) (*model.UsageRecord, error)
	// Save upserts the record keyed by its user id.
	Save(ctx context.Context, rec *model.UsageRecord) error
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) Get(ctx context.Context, userID string) (*model.UsageRecord, error) {
	const q = `
        SELECT user_id,
               COALESCE(chat_message_count, 0),
               COALESCE(pdf_generated_count, 0),
               period_anchor,
               updated_at
        FROM usage_records
        WHERE user_id = $1
    `
	var rec model.UsageRecord
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&rec.UserID,
		&rec.ChatMessageCount,
		&rec.PDFGeneratedCount,
		&rec.PeriodAnchor,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch usage record for user %s: %w", userID, err)
	}
	return &rec, nil
}

func (r *usageRepo) Save(ctx context.Context, rec *model.UsageRecord) error {
	const q = `
        INSERT INTO usage_records (user_id, chat_message_count, pdf_generated_count, period_anchor, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET chat_message_count = EXCLUDED.chat_message_count,
            pdf_generated_count = EXCLUDED.pdf_generated_count,
            period_anchor = EXCLUDED.period_anchor,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q, rec.UserID, rec.ChatMessageCount, rec.PDFGeneratedCount, rec.PeriodAnchor)
	if err != nil {
		return fmt.Errorf("upsert usage record for user %s: %w", rec.UserID, err)
	}
	return nil
}
