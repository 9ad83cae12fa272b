package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"
)

var ErrLessonNotFound = errors.New("lesson not found")

// CourseWithLessons bundles a course and its ordered lessons.
type CourseWithLessons struct {
	Course  model.Course   `json:"course"`
	Lessons []model.Lesson `json:"lessons"`
}

// CourseService defines the interface for course catalogue operations.
type CourseService interface {
	ListCourses(ctx context.Context, category string) ([]model.Course, error)
	GetCourse(ctx context.Context, courseID string) (*CourseWithLessons, error)
	CompleteLesson(ctx context.Context, userID, lessonID string) error
	GetCompletions(ctx context.Context, userID string) ([]model.CourseCompletion, error)
}

type courseService struct {
	repo repository.CourseRepository
}

// NewCourseService creates a new CourseService
func NewCourseService(repo repository.CourseRepository) CourseService {
	return &courseService{repo: repo}
}

func (s *courseService) ListCourses(ctx context.Context, category string) ([]model.Course, error) {
	return s.repo.ListCourses(ctx, category)
}

func (s *courseService) GetCourse(ctx context.Context, courseID string) (*CourseWithLessons, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseWithLessons{Course: *course, Lessons: lessons}, nil
}

func (s *courseService) CompleteLesson(ctx context.Context, userID, lessonID string) error {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if lesson == nil {
		return ErrLessonNotFound
	}
	return s.repo.MarkLessonCompleted(ctx, userID, lessonID)
}

func (s *courseService) GetCompletions(ctx context.Context, userID string) ([]model.CourseCompletion, error) {
	return s.repo.ListCompletions(ctx, userID)
}
