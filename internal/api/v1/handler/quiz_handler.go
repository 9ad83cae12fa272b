package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type QuizHandler struct {
	quizService service.QuizService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewQuizHandler(quizService service.QuizService, validate *validator.Validate, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{quizService: quizService, validate: validate, logger: logger}
}

// RegisterRoutes mounts quiz routes
func (h *QuizHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/quiz/round", authMw(http.HandlerFunc(h.startRound)))
	mux.Handle("/quiz/submit", authMw(http.HandlerFunc(h.submitRound)))
	mux.Handle("/quiz/progress", authMw(http.HandlerFunc(h.getProgress)))
}

func (h *QuizHandler) startRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	category := r.URL.Query().Get("category")
	questions, err := h.quizService.StartRound(r.Context(), category)
	if err != nil {
		if errors.Is(err, service.ErrNotEnoughQuestions) {
			http.Error(w, "Not enough questions for this category", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to start quiz round: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.QuizQuestionResponseDTO, len(questions))
	for i, q := range questions {
		resp[i] = dto.QuizQuestionResponseDTO{
			ID:       q.ID,
			Category: q.Category,
			Prompt:   q.Prompt,
			Options:  q.Options,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *QuizHandler) submitRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.QuizSubmitDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	answers := make([]service.QuizAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = service.QuizAnswer{QuestionID: a.QuestionID, ChosenIndex: a.ChosenIndex}
	}

	result, err := h.quizService.SubmitRound(r.Context(), userID, answers)
	if err != nil {
		http.Error(w, "Failed to grade quiz: "+err.Error(), http.StatusBadRequest)
		return
	}

	corrections := make([]dto.QuizCorrectionDTO, len(result.Corrections))
	for i, c := range result.Corrections {
		corrections[i] = dto.QuizCorrectionDTO{
			QuestionID:  c.QuestionID,
			Correct:     c.Correct,
			AnswerIndex: c.AnswerIndex,
			Explanation: c.Explanation,
		}
	}
	resp := dto.QuizResultResponseDTO{
		Correct:      result.Correct,
		Total:        result.Total,
		PointsEarned: result.PointsEarned,
		Perfect:      result.Perfect,
		Points:       result.Progress.Points,
		Level:        result.Progress.Level,
		Corrections:  corrections,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *QuizHandler) getProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	progress, err := h.quizService.GetProgress(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch progress: "+err.Error(), http.StatusInternalServerError)
		return
	}
	recommended, err := h.quizService.RecommendCategory(r.Context(), userID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to compute category recommendation")
	}

	resp := dto.QuizProgressResponseDTO{
		Points:              progress.Points,
		Level:               progress.Level,
		QuizzesTaken:        progress.QuizzesTaken,
		RecommendedCategory: recommended,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
