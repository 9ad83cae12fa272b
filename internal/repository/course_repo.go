package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCourseNotFound is returned when a course id does not exist.
var ErrCourseNotFound = errors.New("course not found")

type CourseRepository interface {
	ListCourses(ctx context.Context, category string) ([]model.Course, error)
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error)
	GetLesson(ctx context.Context, lessonID string) (*model.Lesson, error)
	MarkLessonCompleted(ctx context.Context, userID, lessonID string) error
	ListCompletions(ctx context.Context, userID string) ([]model.CourseCompletion, error)
}

type courseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) CourseRepository {
	return &courseRepo{pool: pool}
}

func (r *courseRepo) ListCourses(ctx context.Context, category string) ([]model.Course, error) {
	q := `
		SELECT id, category, title, description, position, created_at, updated_at
		FROM courses
	`
	args := []any{}
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}
	q += ` ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var course model.Course
		if err := rows.Scan(
			&course.ID,
			&course.Category,
			&course.Title,
			&course.Description,
			&course.Position,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning course row: %w", err)
		}
		courses = append(courses, course)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}
	return courses, nil
}

func (r *courseRepo) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	const q = `
		SELECT id, category, title, description, position, created_at, updated_at
		FROM courses
		WHERE id = $1
	`
	var course model.Course
	err := r.pool.QueryRow(ctx, q, courseID).Scan(
		&course.ID,
		&course.Category,
		&course.Title,
		&course.Description,
		&course.Position,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("getting course: %w", err)
	}
	return &course, nil
}

func (r *courseRepo) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	const q = `
		SELECT id, course_id, title, content, position
		FROM lessons
		WHERE course_id = $1
		ORDER BY position ASC
	`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying lessons: %w", err)
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var lesson model.Lesson
		if err := rows.Scan(
			&lesson.ID,
			&lesson.CourseID,
			&lesson.Title,
			&lesson.Content,
			&lesson.Position,
		); err != nil {
			return nil, fmt.Errorf("scanning lesson row: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lesson rows: %w", err)
	}
	return lessons, nil
}

func (r *courseRepo) GetLesson(ctx context.Context, lessonID string) (*model.Lesson, error) {
	const q = `
		SELECT id, course_id, title, content, position
		FROM lessons
		WHERE id = $1
	`
	var lesson model.Lesson
	err := r.pool.QueryRow(ctx, q, lessonID).Scan(
		&lesson.ID,
		&lesson.CourseID,
		&lesson.Title,
		&lesson.Content,
		&lesson.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting lesson: %w", err)
	}
	return &lesson, nil
}

func (r *courseRepo) MarkLessonCompleted(ctx context.Context, userID, lessonID string) error {
	const q = `
		INSERT INTO course_completions (user_id, lesson_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, userID, lessonID); err != nil {
		return fmt.Errorf("marking lesson completed: %w", err)
	}
	return nil
}

func (r *courseRepo) ListCompletions(ctx context.Context, userID string) ([]model.CourseCompletion, error) {
	const q = `
		SELECT user_id, lesson_id, completed_at
		FROM course_completions
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying course completions: %w", err)
	}
	defer rows.Close()

	var completions []model.CourseCompletion
	for rows.Next() {
		var completion model.CourseCompletion
		if err := rows.Scan(&completion.UserID, &completion.LessonID, &completion.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning completion row: %w", err)
		}
		completions = append(completions, completion)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating completion rows: %w", err)
	}
	return completions, nil
}
