package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ChatTurn is a single message sent to the model.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PerplexityClient talks to the Perplexity chat completions API.
type PerplexityClient interface {
	StreamChat(ctx context.Context, turns []ChatTurn) (io.ReadCloser, error)
	Complete(ctx context.Context, turns []ChatTurn) (string, error)
}

type perplexityClient struct {
	baseURL      string
	apiKey       string
	model        string
	streamClient *http.Client
	client       *http.Client
	logger       zerolog.Logger
}

func NewPerplexityClient(baseURL, apiKey, model string, logger zerolog.Logger) PerplexityClient {
	return &perplexityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		// No timeout for streaming - rely on context cancellation so
		// long responses are not cut off mid-stream.
		streamClient: &http.Client{},
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       logger.With().Str("service", "PerplexityClient").Logger(),
	}
}

type completionRequest struct {
	Model    string     `json:"model"`
	Messages []ChatTurn `json:"messages"`
	Stream   bool       `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *perplexityClient) newRequest(ctx context.Context, turns []ChatTurn, stream bool) (*http.Request, error) {
	body := completionRequest{
		Model:    c.model,
		Messages: turns,
		Stream:   stream,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// StreamChat opens a streaming completion. The caller owns the
// returned body and reads SSE chunks from it via ParseStreamChunk.
func (c *perplexityClient) StreamChat(ctx context.Context, turns []ChatTurn) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, turns, true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling completion API: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			c.logger.Warn().Err(readErr).Int("status_code", resp.StatusCode).Msg("Failed to read error body from completion API")
			return nil, fmt.Errorf("completion API returned status %d", resp.StatusCode)
		}
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_body", string(bodyBytes)).
			Msg("Completion API returned error")
		return nil, fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp.Body, nil
}

// Complete runs a non-streaming completion and returns the full text.
// Used for background work like conversation titles.
func (c *perplexityClient) Complete(ctx context.Context, turns []ChatTurn) (string, error) {
	req, err := c.newRequest(ctx, turns, false)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamChunk is one parsed SSE event from a streaming completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// ParseStreamChunk reads a single SSE event from the stream.
// SSE format: "data: <json>\n\n" with a blank line separating events.
// The terminal event carries the literal payload "[DONE]".
func ParseStreamChunk(reader *bufio.Reader) (StreamChunk, error) {
	var dataLine string
	foundData := false

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if foundData {
					break
				}
				return StreamChunk{}, io.EOF
			}
			return StreamChunk{}, err
		}

		line = strings.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if foundData {
				break
			}
			continue
		}

		// SSE comments start with ":".
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			dataLine = line[6:]
			foundData = true
			continue
		}

		if foundData {
			break
		}
	}

	if !foundData {
		return StreamChunk{}, fmt.Errorf("no data line found in SSE event")
	}

	if dataLine == "[DONE]" {
		return StreamChunk{Done: true}, nil
	}

	var event struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(dataLine), &event); err != nil {
		return StreamChunk{}, fmt.Errorf("unmarshaling SSE data %q: %w", dataLine, err)
	}
	if len(event.Choices) == 0 {
		return StreamChunk{}, nil
	}
	choice := event.Choices[0]
	return StreamChunk{
		Content: choice.Delta.Content,
		Done:    choice.FinishReason == "stop",
	}, nil
}
