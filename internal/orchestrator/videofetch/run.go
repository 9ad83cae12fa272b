package videofetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/pgmq"

	"github.com/rs/zerolog"
)

// Run starts the video fetch orchestrator. It drains the video fetch queue
// and drives the external downloader service for each requested download.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config in video fetch orchestrator: %v", err)
	}
	queue := cfg.VideoFetchQueueName
	baseURL := strings.TrimRight(cfg.DownloaderBaseURL, "/")
	downloadEndpoint := fmt.Sprintf("%s/download", baseURL)
	logger.Info().Str("queue", queue).Str("endpoint", downloadEndpoint).Msg("Starting video fetch orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down video fetch orchestrator")
			return nil
		default:
		}
		logger.Info().Msg("Reading video fetch queue")
		msgs, err := client.ReadWithPoll(ctx, queue, cfg.VideoFetchPollTimeoutSec, cfg.VideoFetchPollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading video fetch queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msgf("Received video fetch job: %s", string(msg.Data))

		var payload struct {
			DownloadID string `json:"download_id"`
			VideoID    string `json:"video_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			logger.Error().Err(err).Msg("Failed to unmarshal video fetch payload; deleting message")
			client.Delete(ctx, queue, []int64{msg.ID})
			continue
		}

		if err := client.Exec(ctx, "UPDATE video_downloads SET status=$1 WHERE id=$2", "downloading", payload.DownloadID); err != nil {
			logger.Error().Err(err).Str("download_id", payload.DownloadID).Msg("Failed to update download status to downloading; will retry")
			time.Sleep(time.Second)
			continue
		}

		// Call the downloader service with retry/backoff. Downloads can take
		// minutes, so the per-request timeout is configured separately.
		backoff := time.Duration(cfg.VideoFetchBackoffInitialSec) * time.Second
		requestTimeout := time.Duration(cfg.VideoFetchRequestTimeoutSec) * time.Second
		var storagePath string
		var httpErr error
		for attempt := 1; attempt <= cfg.VideoFetchMaxRetries; attempt++ {
			ctxReq, cancel := context.WithTimeout(ctx, requestTimeout)
			reqBody, _ := json.Marshal(payload)
			req, _ := http.NewRequestWithContext(ctxReq, http.MethodPost, downloadEndpoint, bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := http.DefaultClient.Do(req)
			duration := time.Since(start)
			cancel()

			if err == nil && resp.StatusCode == http.StatusOK {
				var result struct {
					StoragePath string `json:"storage_path"`
				}
				decodeErr := json.NewDecoder(resp.Body).Decode(&result)
				resp.Body.Close()
				if decodeErr != nil {
					httpErr = fmt.Errorf("decoding downloader response: %w", decodeErr)
				} else {
					storagePath = result.StoragePath
					logger.Info().Str("duration", duration.String()).Str("storage_path", storagePath).Msg("Downloader service succeeded")
					httpErr = nil
					break
				}
			} else if err == nil {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				httpErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
			} else {
				httpErr = err
			}
			logger.Error().Err(httpErr).Int("attempt", attempt).Msg("Downloader service call failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			if backoff > time.Duration(cfg.VideoFetchBackoffMaxSec)*time.Second {
				backoff = time.Duration(cfg.VideoFetchBackoffMaxSec) * time.Second
			}
		}
		if httpErr != nil {
			errorDetails := map[string]string{
				"stage":   "video_fetch",
				"message": httpErr.Error(),
			}
			detailsBytes, _ := json.Marshal(errorDetails)

			updateQuery := "UPDATE video_downloads SET status=$1, error_details=$2 WHERE id=$3"
			if err := client.Exec(ctx, updateQuery, "failed", detailsBytes, payload.DownloadID); err != nil {
				logger.Error().Err(err).Str("download_id", payload.DownloadID).Msg("Failed to update download status to failed")
			}
			dlq := cfg.VideoFetchDeadLetterQueueName
			if msgBytes, err := json.Marshal(payload); err == nil {
				if err := client.Send(ctx, dlq, msgBytes); err != nil {
					logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
				}
			} else {
				logger.Error().Err(err).Msg("Failed to marshal payload for dead-letter queue")
			}
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting video fetch message after failure")
			}
			logger.Warn().
				Int("attempts", cfg.VideoFetchMaxRetries).
				Str("download_id", payload.DownloadID).
				Err(httpErr).
				Msg("Exhausted all download retries; moving job to DLQ")
			continue
		}

		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Msg("Error deleting video fetch message")
		}

		if err := client.Exec(ctx, "UPDATE video_downloads SET status=$1, storage_path=$2 WHERE id=$3", "completed", storagePath, payload.DownloadID); err != nil {
			logger.Error().Err(err).Str("download_id", payload.DownloadID).Msg("Failed to update download status to completed")
		}
	}
}
