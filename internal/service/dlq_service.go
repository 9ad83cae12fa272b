package service

import (
	"context"
	"encoding/base64"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/repository"
)

type DLQService interface {
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
	List(ctx context.Context, queueName string, limit int) ([]model.DeadLetterMessage, error)
}

type dlqService struct {
	repo repository.DLQRepository
}

func NewDLQService(repo repository.DLQRepository) DLQService {
	return &dlqService{repo: repo}
}

// ProcessAndSave persists a dead-lettered Pub/Sub push for later
// inspection.
func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	decodedPayload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		// Undecodable payloads are still worth keeping raw.
		decodedPayload = []byte(req.Message.Data)
	}

	dbMessage := &model.DeadLetterMessage{
		QueueName: req.Subscription,
		MessageID: req.Message.MessageID,
		Payload:   string(decodedPayload),
		Status:    "unprocessed",
	}
	return s.repo.Create(ctx, dbMessage)
}

func (s *dlqService) List(ctx context.Context, queueName string, limit int) ([]model.DeadLetterMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, queueName, limit)
}
