package service

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/model"
	"app/internal/pubsub"

	"github.com/rs/zerolog"
)

// UsageNotifier is told when a user hits a usage cap, so the product can
// react (upsell prompts, analytics). Implementations must not block the
// request path on failure.
type UsageNotifier interface {
	LimitReached(ctx context.Context, userID string, action model.GatedAction)
}

// pubSubNotifier publishes limit-reached events to a Pub/Sub topic.
type pubSubNotifier struct {
	publisher pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

func NewPubSubNotifier(publisher pubsub.Publisher, topic string, logger zerolog.Logger) UsageNotifier {
	return &pubSubNotifier{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("service", "PubSubNotifier").Logger(),
	}
}

func (n *pubSubNotifier) LimitReached(ctx context.Context, userID string, action model.GatedAction) {
	event := struct {
		UserID     string `json:"user_id"`
		Action     string `json:"action"`
		Event      string `json:"event"`
		OccurredAt string `json:"occurred_at"`
	}{
		UserID:     userID,
		Action:     string(action),
		Event:      "limit_reached",
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to marshal limit-reached event")
		return
	}
	if _, err := n.publisher.Publish(ctx, n.topic, payload); err != nil {
		n.logger.Error().Err(err).Str("user_id", userID).Str("action", string(action)).Msg("Failed to publish limit-reached event")
	}
}

// NoopNotifier discards notifications. Used when Pub/Sub is not configured.
type NoopNotifier struct{}

func (NoopNotifier) LimitReached(ctx context.Context, userID string, action model.GatedAction) {}
