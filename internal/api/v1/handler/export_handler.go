package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/rs/zerolog"
)

type ExportHandler struct {
	chatService   service.ChatService
	exportService service.ExportService
	usageService  service.UsageService
	logger        zerolog.Logger
}

func NewExportHandler(chatService service.ChatService, exportService service.ExportService, usageService service.UsageService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		chatService:   chatService,
		exportService: exportService,
		usageService:  usageService,
		logger:        logger,
	}
}

// RegisterRoutes mounts the export endpoint.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/exports/conversations/", authMw(http.HandlerFunc(h.exportConversation)))
}

// exportConversation godoc
// @Summary Export a conversation as PDF
// @Description Renders the conversation transcript as a PDF, stores it and returns a short-lived download URL. Consumes one unit of the monthly PDF quota; returns 429 once the quota is spent.
// @Tags exports
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Success 200 {object} dto.ExportResponseDTO
// @Failure 401 {string} string "Unauthorized: User ID not found in context"
// @Failure 404 {string} string "Conversation not found"
// @Failure 429 {string} string "Monthly PDF limit reached"
// @Failure 500 {string} string "Failed to export conversation"
// @Router /exports/conversations/{conversationId} [post]
func (h *ExportHandler) exportConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	conversationID := strings.TrimPrefix(r.URL.Path, "/exports/conversations/")
	if conversationID == "" || strings.Contains(conversationID, "/") {
		http.NotFound(w, r)
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

	decision := h.usageService.CheckAndConsume(r.Context(), userID, model.GatedActionPDF)
	if !decision.Allowed {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "monthly PDF limit reached",
		})
		return
	}

	messages, err := h.chatService.ListMessages(r.Context(), conversationID, userID, 200)
	if err != nil {
		http.Error(w, "Failed to load messages: "+err.Error(), http.StatusInternalServerError)
		return
	}

	url, err := h.exportService.ExportConversation(r.Context(), userID, conv, messages)
	if err != nil {
		http.Error(w, "Failed to export conversation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ExportResponseDTO{URL: url})
}
