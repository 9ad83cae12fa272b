package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ChatHandler struct {
	chatService  service.ChatService
	usageService service.UsageService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewChatHandler(chatService service.ChatService, usageService service.UsageService, validate *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		usageService: usageService,
		validate:     validate,
		logger:       logger,
	}
}

func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/conversations", authMw(http.HandlerFunc(h.handleConversations)))
	mux.Handle("/conversations/", authMw(http.HandlerFunc(h.handleConversation)))
	mux.Handle("/chat/suggestion", authMw(http.HandlerFunc(h.getSuggestion)))
}

func (h *ChatHandler) handleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createConversation(w, r)
	case http.MethodGet:
		h.listConversations(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ChatHandler) handleConversation(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	parts := strings.Split(path, "/")
	conversationID := parts[0]
	if conversationID == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getConversation(w, r, conversationID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.deleteConversation(w, r, conversationID)
	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodGet:
		h.listMessages(w, r, conversationID)
	case len(parts) == 2 && parts[1] == "stream" && r.Method == http.MethodPost:
		h.streamChat(w, r, conversationID)
	default:
		http.NotFound(w, r)
	}
}

func (h *ChatHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ConversationCreateDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	conv, err := h.chatService.CreateConversation(r.Context(), userID, title)
	if err != nil {
		http.Error(w, "Failed to create conversation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toConversationDTO(conv))
}

func (h *ChatHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	convs, err := h.chatService.ListConversations(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list conversations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.ConversationResponseDTO, len(convs))
	for i := range convs {
		resp[i] = toConversationDTO(&convs[i])
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *ChatHandler) getConversation(w http.ResponseWriter, r *http.Request, conversationID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	conv, err := h.chatService.GetConversation(r.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch conversation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toConversationDTO(conv))
}

func (h *ChatHandler) deleteConversation(w http.ResponseWriter, r *http.Request, conversationID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.chatService.DeleteConversation(r.Context(), conversationID, userID); err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete conversation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.chatService.ListMessages(r.Context(), conversationID, userID, limit)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to list messages: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.MessageResponseDTO, len(messages))
	for i, msg := range messages {
		resp[i] = dto.MessageResponseDTO{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Role:           msg.Role,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// streamChat godoc
// @Summary Stream an assistant response
// @Description Sends a user message and streams the assistant's reply using Server-Sent Events. The message consumes one unit of the daily chat quota; a 429 is returned once the quota is spent. The user message is saved immediately and the assistant reply is saved after the stream completes.
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param conversationId path string true "Conversation ID"
// @Param request body dto.ChatStreamRequestDTO true "User message"
// @Success 200 {string} string "Server-Sent Events stream"
// @Failure 400 {string} string "Invalid JSON payload or validation failed"
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Conversation not found"
// @Failure 429 {string} string "Daily chat limit reached"
// @Failure 500 {string} string "Failed to stream chat response"
// @Router /conversations/{conversationId}/stream [post]
func (h *ChatHandler) streamChat(w http.ResponseWriter, r *http.Request, conversationID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ChatStreamRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Gate before any model call. The conversation check below still
	// runs under the consumed unit; a 404 afterwards is acceptable.
	decision := h.usageService.CheckAndConsume(r.Context(), userID, model.GatedActionChat)
	if !decision.Allowed {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "daily chat limit reached",
		})
		return
	}

	priorCount, err := h.chatService.GetMessageCount(r.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to check conversation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.chatService.CreateMessage(r.Context(), conversationID, userID, "user", req.Content); err != nil {
		http.Error(w, "Failed to save message: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stream, err := h.chatService.StreamResponse(r.Context(), conversationID, userID)
	if err != nil {
		http.Error(w, "Failed to stream chat response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			h.logger.Error().Err(err).Msg("Failed to close stream")
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	reader := bufio.NewReader(stream)
	var fullContent strings.Builder
	for {
		chunk, err := service.ParseStreamChunk(reader)
		if err != nil {
			if err == io.EOF {
				break
			}
			h.logger.Error().Err(err).Msg("Error reading from completion stream")
			break
		}

		if chunk.Content != "" {
			event := map[string]any{"type": "delta", "content": chunk.Content}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", eventJSON); err != nil {
				h.logger.Error().Err(err).Msg("Failed to write delta event")
				break
			}
			flusher.Flush()
			fullContent.WriteString(chunk.Content)
		}
		if chunk.Done {
			break
		}
	}

	doneEvent := map[string]any{"type": "done", "remaining": decision.Remaining, "unlimited": decision.Unlimited}
	doneJSON, _ := json.Marshal(doneEvent)
	if _, err := fmt.Fprintf(w, "data: %s\n\n", doneJSON); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write done event")
	}
	flusher.Flush()

	assistantContent := fullContent.String()
	if assistantContent != "" {
		if _, err := h.chatService.CreateMessage(r.Context(), conversationID, userID, "assistant", assistantContent); err != nil {
			h.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to save assistant message")
		}
		// First exchange: replace the placeholder title in the background.
		if priorCount == 0 {
			h.chatService.GenerateAndUpdateTitle(conversationID, userID, req.Content, assistantContent)
		}
	}
}

func (h *ChatHandler) getSuggestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp := dto.PromptSuggestionResponseDTO{Prompt: h.chatService.SuggestPrompt()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toConversationDTO(conv *model.Conversation) dto.ConversationResponseDTO {
	return dto.ConversationResponseDTO{
		ID:        conv.ID,
		UserID:    conv.UserID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}
