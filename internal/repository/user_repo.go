package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, userID, name, email, avatarURL string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, userID, name, email, avatarURL string) (*model.User, error) {
	const q = `
		INSERT INTO users (user_id, name, email, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    avatar_url = EXCLUDED.avatar_url,
		    updated_at = NOW()
		RETURNING user_id, name, email, avatar_url, stripe_customer_id, created_at, updated_at
	`
	var user model.User
	err := r.pool.QueryRow(ctx, q, userID, name, email, avatarURL).Scan(
		&user.UserID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	const q = `
		SELECT user_id, name, email, avatar_url, stripe_customer_id, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`
	var user model.User
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&user.UserID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	const q = `
		SELECT user_id, name, email, avatar_url, stripe_customer_id, created_at, updated_at
		FROM users
		WHERE stripe_customer_id = $1
	`
	var user model.User
	err := r.pool.QueryRow(ctx, q, customerID).Scan(
		&user.UserID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user by stripe customer: %w", err)
	}
	return &user, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `
		UPDATE users
		SET stripe_customer_id = $1, updated_at = NOW()
		WHERE user_id = $2
	`
	if _, err := r.pool.Exec(ctx, q, customerID, userID); err != nil {
		return fmt.Errorf("updating stripe customer id: %w", err)
	}
	return nil
}
