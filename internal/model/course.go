package model

import "time"

// Course is a browsable unit of the training catalogue.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Category    string    `db:"category" json:"category"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Position    int       `db:"position" json:"position"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Lesson is one section of a course.
type Lesson struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	Title    string `db:"title" json:"title"`
	Content  string `db:"content" json:"content"`
	Position int    `db:"position" json:"position"`
}

// CourseCompletion marks a lesson as read by a user.
type CourseCompletion struct {
	UserID      string    `db:"user_id" json:"user_id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
