package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

const (
	quizRoundSize     = 5
	pointsPerCorrect  = 10
	perfectRoundBonus = 5
	pointsPerLevel    = 100
	maxLevel          = 10
)

var ErrNotEnoughQuestions = errors.New("not enough questions in the bank")

// QuizAnswer pairs a question with the option index the user picked.
type QuizAnswer struct {
	QuestionID  string
	ChosenIndex int
}

// QuizResult summarizes a graded round.
type QuizResult struct {
	Correct      int                 `json:"correct"`
	Total        int                 `json:"total"`
	PointsEarned int                 `json:"points_earned"`
	Perfect      bool                `json:"perfect"`
	Progress     *model.QuizProgress `json:"progress"`
	Corrections  []QuizCorrection    `json:"corrections"`
}

// QuizCorrection explains one graded answer.
type QuizCorrection struct {
	QuestionID  string `json:"question_id"`
	Correct     bool   `json:"correct"`
	AnswerIndex int    `json:"answer_index"`
	Explanation string `json:"explanation,omitempty"`
}

type QuizService interface {
	StartRound(ctx context.Context, category string) ([]model.QuizQuestion, error)
	SubmitRound(ctx context.Context, userID string, answers []QuizAnswer) (*QuizResult, error)
	GetProgress(ctx context.Context, userID string) (*model.QuizProgress, error)
	RecommendCategory(ctx context.Context, userID string) (string, error)
}

type quizService struct {
	repo   repository.QuizRepository
	logger zerolog.Logger
}

func NewQuizService(repo repository.QuizRepository, logger zerolog.Logger) QuizService {
	return &quizService{
		repo:   repo,
		logger: logger.With().Str("service", "QuizService").Logger(),
	}
}

// StartRound samples a round of questions without replacement. An empty
// category draws from the whole bank.
func (s *quizService) StartRound(ctx context.Context, category string) ([]model.QuizQuestion, error) {
	bank, err := s.repo.ListQuestions(ctx, category)
	if err != nil {
		s.logger.Error().Err(err).Str("category", category).Msg("Failed to load question bank")
		return nil, fmt.Errorf("loading question bank: %w", err)
	}
	if len(bank) < quizRoundSize {
		return nil, ErrNotEnoughQuestions
	}
	rand.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
	return bank[:quizRoundSize], nil
}

// SubmitRound grades the answers, updates the user's progress and
// per-category stats, and returns the corrections.
func (s *quizService) SubmitRound(ctx context.Context, userID string, answers []QuizAnswer) (*QuizResult, error) {
	if len(answers) == 0 {
		return nil, errors.New("no answers submitted")
	}

	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.QuestionID
	}
	questions, err := s.repo.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load submitted questions")
		return nil, fmt.Errorf("loading questions: %w", err)
	}
	byID := make(map[string]model.QuizQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	result := &QuizResult{Total: len(answers)}
	categoryCorrect := map[string]int{}
	categoryTotal := map[string]int{}
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("unknown question: %s", a.QuestionID)
		}
		correct := a.ChosenIndex == q.AnswerIndex
		if correct {
			result.Correct++
			categoryCorrect[q.Category]++
		}
		categoryTotal[q.Category]++
		result.Corrections = append(result.Corrections, QuizCorrection{
			QuestionID:  q.ID,
			Correct:     correct,
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
		})
	}

	result.PointsEarned = result.Correct * pointsPerCorrect
	if result.Correct == result.Total {
		result.Perfect = true
		result.PointsEarned += perfectRoundBonus
	}

	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load quiz progress")
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	if progress == nil {
		progress = &model.QuizProgress{UserID: userID}
	}
	progress.Points += result.PointsEarned
	progress.QuizzesTaken++
	progress.Level = levelForPoints(progress.Points)

	if err := s.repo.SaveProgress(ctx, progress); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save quiz progress")
		return nil, fmt.Errorf("saving progress: %w", err)
	}
	for category, total := range categoryTotal {
		if err := s.repo.RecordCategoryResult(ctx, userID, category, categoryCorrect[category], total); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Str("category", category).Msg("Failed to record category result")
		}
	}

	result.Progress = progress
	return result, nil
}

func levelForPoints(points int) int {
	level := points/pointsPerLevel + 1
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

func (s *quizService) GetProgress(ctx context.Context, userID string) (*model.QuizProgress, error) {
	progress, err := s.repo.GetProgress(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch quiz progress")
		return nil, err
	}
	if progress == nil {
		progress = &model.QuizProgress{UserID: userID, Level: 1}
	}
	return progress, nil
}

// RecommendCategory suggests the category with the lowest accuracy so
// training targets the user's weak spots. Empty when there is no
// history yet.
func (s *quizService) RecommendCategory(ctx context.Context, userID string) (string, error) {
	stats, err := s.repo.GetCategoryStats(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch category stats")
		return "", err
	}

	weakest := ""
	weakestRate := 2.0
	for _, stat := range stats {
		if stat.Total == 0 {
			continue
		}
		rate := float64(stat.Correct) / float64(stat.Total)
		if rate < weakestRate {
			weakestRate = rate
			weakest = stat.Category
		}
	}
	return weakest, nil
}
