package service

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// JobQueue enqueues background jobs. Satisfied by the pgmq client.
type JobQueue interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// VideoFetchJob is the queue payload consumed by the videofetch
// orchestrator.
type VideoFetchJob struct {
	DownloadID string `json:"download_id"`
	VideoID    string `json:"video_id"`
}

type VideoService interface {
	Search(ctx context.Context, query string, maxResults int64) ([]model.VideoResult, error)
	RequestDownload(ctx context.Context, userID, videoID, title string) (*model.VideoDownload, error)
	GetDownload(ctx context.Context, downloadID, userID string) (*model.VideoDownload, error)
	ListDownloads(ctx context.Context, userID string) ([]model.VideoDownload, error)
}

type videoService struct {
	repo      repository.VideoRepository
	apiKey    string
	queue     JobQueue
	queueName string
	logger    zerolog.Logger
}

func NewVideoService(repo repository.VideoRepository, apiKey string, queue JobQueue, queueName string, logger zerolog.Logger) VideoService {
	return &videoService{
		repo:      repo,
		apiKey:    apiKey,
		queue:     queue,
		queueName: queueName,
		logger:    logger.With().Str("service", "VideoService").Logger(),
	}
}

// Search queries the YouTube Data API for videos matching the query.
func (s *videoService) Search(ctx context.Context, query string, maxResults int64) ([]model.VideoResult, error) {
	if maxResults <= 0 || maxResults > 25 {
		maxResults = 10
	}
	yt, err := youtube.NewService(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create YouTube client")
		return nil, fmt.Errorf("creating youtube client: %w", err)
	}

	call := yt.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		RelevanceLanguage("fr").
		MaxResults(maxResults)
	resp, err := call.Context(ctx).Do()
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("YouTube search failed")
		return nil, fmt.Errorf("searching youtube: %w", err)
	}

	results := make([]model.VideoResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		result := model.VideoResult{
			VideoID:      item.Id.VideoId,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		}
		if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Medium != nil {
			result.ThumbnailURL = item.Snippet.Thumbnails.Medium.Url
		}
		results = append(results, result)
	}
	return results, nil
}

// RequestDownload records a download request and enqueues it for the
// videofetch orchestrator.
func (s *videoService) RequestDownload(ctx context.Context, userID, videoID, title string) (*model.VideoDownload, error) {
	download, err := s.repo.CreateDownload(ctx, userID, videoID, title)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("video_id", videoID).Msg("Failed to create download record")
		return nil, fmt.Errorf("creating download record: %w", err)
	}

	payload, err := json.Marshal(VideoFetchJob{DownloadID: download.ID, VideoID: videoID})
	if err != nil {
		return nil, fmt.Errorf("marshaling download job: %w", err)
	}
	if err := s.queue.Send(ctx, s.queueName, payload); err != nil {
		s.logger.Error().Err(err).Str("download_id", download.ID).Msg("Failed to enqueue download job")
		return nil, fmt.Errorf("enqueueing download job: %w", err)
	}

	s.logger.Info().Str("download_id", download.ID).Str("video_id", videoID).Msg("Download job enqueued")
	return download, nil
}

func (s *videoService) GetDownload(ctx context.Context, downloadID, userID string) (*model.VideoDownload, error) {
	download, err := s.repo.GetDownload(ctx, downloadID, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("download_id", downloadID).Msg("Failed to fetch download")
		return nil, err
	}
	return download, nil
}

func (s *videoService) ListDownloads(ctx context.Context, userID string) ([]model.VideoDownload, error) {
	downloads, err := s.repo.ListDownloads(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list downloads")
		return nil, err
	}
	return downloads, nil
}
