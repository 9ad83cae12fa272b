package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"
)

type CourseHandler struct {
	courseService service.CourseService
}

func NewCourseHandler(courseService service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// RegisterRoutes mounts course routes
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/courses", authMw(http.HandlerFunc(h.listCourses)))
	mux.Handle("/courses/", authMw(http.HandlerFunc(h.getCourse)))
	mux.Handle("/lessons/", authMw(http.HandlerFunc(h.completeLesson)))
	mux.Handle("/completions", authMw(http.HandlerFunc(h.listCompletions)))
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	category := r.URL.Query().Get("category")
	courses, err := h.courseService.ListCourses(r.Context(), category)
	if err != nil {
		http.Error(w, "Failed to list courses: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.CourseResponseDTO, len(courses))
	for i, c := range courses {
		resp[i] = toCourseDTO(c)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	courseID := strings.TrimPrefix(r.URL.Path, "/courses/")
	if courseID == "" || strings.Contains(courseID, "/") {
		http.NotFound(w, r)
		return
	}

	detail, err := h.courseService.GetCourse(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch course: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.CourseDetailResponseDTO{
		CourseResponseDTO: toCourseDTO(detail.Course),
		Lessons:           make([]dto.LessonResponseDTO, len(detail.Lessons)),
	}
	for i, l := range detail.Lessons {
		resp.Lessons[i] = dto.LessonResponseDTO{
			ID:       l.ID,
			CourseID: l.CourseID,
			Title:    l.Title,
			Content:  l.Content,
			Position: l.Position,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *CourseHandler) completeLesson(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/lessons/")
	lessonID := strings.TrimSuffix(path, "/complete")
	if lessonID == "" || lessonID == path || strings.Contains(lessonID, "/") {
		http.NotFound(w, r)
		return
	}

	if err := h.courseService.CompleteLesson(r.Context(), userID, lessonID); err != nil {
		if errors.Is(err, service.ErrLessonNotFound) {
			http.Error(w, "Lesson not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to complete lesson: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) listCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	completions, err := h.courseService.GetCompletions(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list completions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]dto.CompletionResponseDTO, len(completions))
	for i, c := range completions {
		resp[i] = dto.CompletionResponseDTO{
			LessonID:    c.LessonID,
			CompletedAt: c.CompletedAt.Format(time.RFC3339),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toCourseDTO(c model.Course) dto.CourseResponseDTO {
	return dto.CourseResponseDTO{
		ID:          c.ID,
		Category:    c.Category,
		Title:       c.Title,
		Description: c.Description,
		Position:    c.Position,
	}
}
