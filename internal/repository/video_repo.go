package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VideoRepository interface {
	CreateDownload(ctx context.Context, userID, videoID, title string) (*model.VideoDownload, error)
	GetDownload(ctx context.Context, downloadID, userID string) (*model.VideoDownload, error)
	ListDownloads(ctx context.Context, userID string) ([]model.VideoDownload, error)
}

type videoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) VideoRepository {
	return &videoRepo{pool: pool}
}

func (r *videoRepo) CreateDownload(ctx context.Context, userID, videoID, title string) (*model.VideoDownload, error) {
	const q = `
		INSERT INTO video_downloads (user_id, video_id, title, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, user_id, video_id, title, status, COALESCE(storage_path, ''), error_details, created_at, updated_at
	`
	var download model.VideoDownload
	err := r.pool.QueryRow(ctx, q, userID, videoID, title).Scan(
		&download.ID,
		&download.UserID,
		&download.VideoID,
		&download.Title,
		&download.Status,
		&download.StoragePath,
		&download.ErrorDetails,
		&download.CreatedAt,
		&download.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating video download: %w", err)
	}
	return &download, nil
}

func (r *videoRepo) GetDownload(ctx context.Context, downloadID, userID string) (*model.VideoDownload, error) {
	const q = `
		SELECT id, user_id, video_id, title, status, COALESCE(storage_path, ''), error_details, created_at, updated_at
		FROM video_downloads
		WHERE id = $1 AND user_id = $2
	`
	var download model.VideoDownload
	err := r.pool.QueryRow(ctx, q, downloadID, userID).Scan(
		&download.ID,
		&download.UserID,
		&download.VideoID,
		&download.Title,
		&download.Status,
		&download.StoragePath,
		&download.ErrorDetails,
		&download.CreatedAt,
		&download.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting video download: %w", err)
	}
	return &download, nil
}

func (r *videoRepo) ListDownloads(ctx context.Context, userID string) ([]model.VideoDownload, error) {
	const q = `
		SELECT id, user_id, video_id, title, status, COALESCE(storage_path, ''), error_details, created_at, updated_at
		FROM video_downloads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying video downloads: %w", err)
	}
	defer rows.Close()

	var downloads []model.VideoDownload
	for rows.Next() {
		var download model.VideoDownload
		if err := rows.Scan(
			&download.ID,
			&download.UserID,
			&download.VideoID,
			&download.Title,
			&download.Status,
			&download.StoragePath,
			&download.ErrorDetails,
			&download.CreatedAt,
			&download.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning video download row: %w", err)
		}
		downloads = append(downloads, download)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating video download rows: %w", err)
	}
	return downloads, nil
}
