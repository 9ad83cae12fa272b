package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUnauthorized         = errors.New("unauthorized access")
)

// systemPrompt frames the assistant as a civic-education guide.
const systemPrompt = "Tu es un assistant pédagogique spécialisé dans l'éducation civique et " +
	"les institutions de la République française. Réponds de façon claire, sourcée et " +
	"accessible, en français."

// historyWindow bounds how many prior messages are replayed to the model.
const historyWindow = 20

// proactivePrompts are conversation starters surfaced to users who have
// not asked anything yet.
var proactivePrompts = []string{
	"Quel est le rôle du Conseil constitutionnel ?",
	"Comment fonctionne le référendum d'initiative partagée ?",
	"Qu'est-ce que la séparation des pouvoirs ?",
	"Comment une loi est-elle votée en France ?",
	"Quelle est la différence entre l'Assemblée nationale et le Sénat ?",
	"Qu'est-ce que la laïcité ?",
}

type ChatService interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	CreateMessage(ctx context.Context, conversationID, userID, role, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]model.Message, error)
	GetMessageCount(ctx context.Context, conversationID, userID string) (int, error)
	StreamResponse(ctx context.Context, conversationID, userID string) (io.ReadCloser, error)
	GenerateAndUpdateTitle(conversationID, userID, userMessage, assistantMessage string)
	SuggestPrompt() string
}

type chatService struct {
	chatRepo repository.ChatRepository
	llm      PerplexityClient
	logger   zerolog.Logger
}

func NewChatService(chatRepo repository.ChatRepository, llm PerplexityClient, logger zerolog.Logger) ChatService {
	return &chatService{
		chatRepo: chatRepo,
		llm:      llm,
		logger:   logger.With().Str("service", "ChatService").Logger(),
	}
}

func (s *chatService) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if title == "" {
		title = "Nouvelle conversation"
	}
	conv, err := s.chatRepo.CreateConversation(ctx, userID, title)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create conversation")
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *chatService) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, err := s.chatRepo.GetConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to fetch conversation")
		return nil, err
	}
	return conv, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID string, limit, offset int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	convs, err := s.chatRepo.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		return nil, err
	}
	return convs, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if err := s.chatRepo.DeleteConversation(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return ErrConversationNotFound
		}
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to delete conversation")
		return err
	}
	return nil
}

func (s *chatService) CreateMessage(ctx context.Context, conversationID, userID, role, content string) (*model.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msg, err := s.chatRepo.CreateMessage(ctx, conversationID, role, content)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to create message")
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	messages, err := s.chatRepo.ListMessages(ctx, conversationID, userID, limit)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to list messages")
		return nil, err
	}
	return messages, nil
}

func (s *chatService) GetMessageCount(ctx context.Context, conversationID, userID string) (int, error) {
	count, err := s.chatRepo.CountMessages(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return 0, ErrConversationNotFound
		}
		return 0, err
	}
	return count, nil
}

// StreamResponse replays the conversation history to the model and
// returns the raw SSE stream. The latest user message must already be
// persisted; it reaches the model through the history replay. The
// caller persists the assistant reply once the stream finishes.
func (s *chatService) StreamResponse(ctx context.Context, conversationID, userID string) (io.ReadCloser, error) {
	history, err := s.ListMessages(ctx, conversationID, userID, historyWindow)
	if err != nil {
		return nil, err
	}

	turns := make([]ChatTurn, 0, len(history)+1)
	turns = append(turns, ChatTurn{Role: "system", Content: systemPrompt})
	for _, msg := range history {
		turns = append(turns, ChatTurn{Role: msg.Role, Content: msg.Content})
	}

	stream, err := s.llm.StreamChat(ctx, turns)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to open completion stream")
		return nil, fmt.Errorf("streaming chat response: %w", err)
	}
	return stream, nil
}

// GenerateAndUpdateTitle asks the model for a short conversation title
// in the background. Failures only log; the placeholder title stays.
func (s *chatService) GenerateAndUpdateTitle(conversationID, userID, userMessage, assistantMessage string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		turns := []ChatTurn{
			{Role: "system", Content: "Donne un titre de 5 mots maximum pour cette conversation. Réponds uniquement avec le titre, sans guillemets."},
			{Role: "user", Content: userMessage},
			{Role: "assistant", Content: assistantMessage},
		}
		title, err := s.llm.Complete(ctx, turns)
		if err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to generate conversation title")
			return
		}
		title = strings.Trim(strings.TrimSpace(title), `"`)
		if title == "" {
			return
		}
		if _, err := s.chatRepo.UpdateConversationTitle(ctx, conversationID, userID, title); err != nil {
			s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to update conversation title")
		}
	}()
}

// SuggestPrompt returns a uniformly random conversation starter.
func (s *chatService) SuggestPrompt() string {
	return proactivePrompts[rand.Intn(len(proactivePrompts))]
}
