package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// DLQHandler receives dead-lettered Pub/Sub pushes.
type DLQHandler struct {
	dlqService service.DLQService
	logger     zerolog.Logger
}

func NewDLQHandler(dlqService service.DLQService, logger zerolog.Logger) *DLQHandler {
	return &DLQHandler{dlqService: dlqService, logger: logger}
}

// RegisterRoutes mounts the push endpoint. Pub/Sub authenticates with
// its own OIDC token at the infrastructure level, not the user JWT.
func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.Handle("/pubsub/dlq", http.HandlerFunc(h.receive))
}

func (h *DLQHandler) receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid push payload", http.StatusBadRequest)
		return
	}

	if err := h.dlqService.ProcessAndSave(r.Context(), &req); err != nil {
		h.logger.Error().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to persist dead-lettered message")
		// Non-2xx makes Pub/Sub redeliver; persistence failures are
		// worth the retry.
		http.Error(w, "failed to persist message", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
