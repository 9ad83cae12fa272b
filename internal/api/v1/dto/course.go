package dto

type CourseResponseDTO struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

type LessonResponseDTO struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type CourseDetailResponseDTO struct {
	CourseResponseDTO
	Lessons []LessonResponseDTO `json:"lessons"`
}

type CompletionResponseDTO struct {
	LessonID    string `json:"lesson_id"`
	CompletedAt string `json:"completed_at"`
}
