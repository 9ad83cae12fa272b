package dto

import "time"

type VideoSearchResultDTO struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channel_title"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  string `json:"published_at"`
}

type VideoDownloadRequestDTO struct {
	VideoID string `json:"video_id" validate:"required,min=5,max=20"`
	Title   string `json:"title" validate:"required,max=300"`
}

type VideoDownloadResponseDTO struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	StoragePath  string    `json:"storage_path,omitempty"`
	ErrorDetails *string   `json:"error_details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
