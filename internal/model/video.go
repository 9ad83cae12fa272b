package model

import "time"

// VideoResult is one hit from a YouTube search, not persisted.
type VideoResult struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channel_title"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  string `json:"published_at"`
}

// VideoDownload is a persisted request to fetch a video for offline viewing.
type VideoDownload struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	VideoID      string    `db:"video_id" json:"video_id"`
	Title        string    `db:"title" json:"title"`
	Status       string    `db:"status" json:"status"`
	StoragePath  string    `db:"storage_path" json:"storage_path,omitempty"`
	ErrorDetails *string   `db:"error_details" json:"error_details,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
