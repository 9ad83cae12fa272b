package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuizRepository interface {
	ListQuestions(ctx context.Context, category string) ([]model.QuizQuestion, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.QuizQuestion, error)
	GetProgress(ctx context.Context, userID string) (*model.QuizProgress, error)
	SaveProgress(ctx context.Context, progress *model.QuizProgress) error
	GetCategoryStats(ctx context.Context, userID string) ([]model.CategoryStat, error)
	RecordCategoryResult(ctx context.Context, userID, category string, correct, total int) error
}

type quizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) QuizRepository {
	return &quizRepo{pool: pool}
}

func (r *quizRepo) ListQuestions(ctx context.Context, category string) ([]model.QuizQuestion, error) {
	q := `
		SELECT id, category, prompt, options, answer_index, explanation
		FROM quiz_questions
	`
	args := []any{}
	if category != "" {
		q += ` WHERE category = $1`
		args = append(args, category)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying quiz questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (r *quizRepo) GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.QuizQuestion, error) {
	const q = `
		SELECT id, category, prompt, options, answer_index, explanation
		FROM quiz_questions
		WHERE id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("querying quiz questions by id: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func scanQuestions(rows pgx.Rows) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	for rows.Next() {
		var question model.QuizQuestion
		if err := rows.Scan(
			&question.ID,
			&question.Category,
			&question.Prompt,
			&question.Options,
			&question.AnswerIndex,
			&question.Explanation,
		); err != nil {
			return nil, fmt.Errorf("scanning quiz question row: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quiz question rows: %w", err)
	}
	return questions, nil
}

func (r *quizRepo) GetProgress(ctx context.Context, userID string) (*model.QuizProgress, error) {
	const q = `
		SELECT user_id, points, level, quizzes_taken, updated_at
		FROM quiz_progress
		WHERE user_id = $1
	`
	var progress model.QuizProgress
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&progress.UserID,
		&progress.Points,
		&progress.Level,
		&progress.QuizzesTaken,
		&progress.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting quiz progress: %w", err)
	}
	return &progress, nil
}

func (r *quizRepo) SaveProgress(ctx context.Context, progress *model.QuizProgress) error {
	const q = `
		INSERT INTO quiz_progress (user_id, points, level, quizzes_taken, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET points = EXCLUDED.points,
		    level = EXCLUDED.level,
		    quizzes_taken = EXCLUDED.quizzes_taken,
		    updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, q, progress.UserID, progress.Points, progress.Level, progress.QuizzesTaken); err != nil {
		return fmt.Errorf("saving quiz progress: %w", err)
	}
	return nil
}

func (r *quizRepo) GetCategoryStats(ctx context.Context, userID string) ([]model.CategoryStat, error) {
	const q = `
		SELECT user_id, category, correct, total
		FROM quiz_category_stats
		WHERE user_id = $1
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying category stats: %w", err)
	}
	defer rows.Close()

	var stats []model.CategoryStat
	for rows.Next() {
		var stat model.CategoryStat
		if err := rows.Scan(&stat.UserID, &stat.Category, &stat.Correct, &stat.Total); err != nil {
			return nil, fmt.Errorf("scanning category stat row: %w", err)
		}
		stats = append(stats, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category stat rows: %w", err)
	}
	return stats, nil
}

func (r *quizRepo) RecordCategoryResult(ctx context.Context, userID, category string, correct, total int) error {
	const q = `
		INSERT INTO quiz_category_stats (user_id, category, correct, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category) DO UPDATE
		SET correct = quiz_category_stats.correct + EXCLUDED.correct,
		    total = quiz_category_stats.total + EXCLUDED.total
	`
	if _, err := r.pool.Exec(ctx, q, userID, category, correct, total); err != nil {
		return fmt.Errorf("recording category result: %w", err)
	}
	return nil
}
