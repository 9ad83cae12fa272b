package dto

import "time"

type ConversationCreateDTO struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
}

type ConversationResponseDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageResponseDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChatStreamRequestDTO struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

type PromptSuggestionResponseDTO struct {
	Prompt string `json:"prompt"`
}
