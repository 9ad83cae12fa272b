package service

import (
	"context"
	"testing"

	"app/internal/model"

	"github.com/rs/zerolog"
)

type fakeQuizRepo struct {
	bank     []model.QuizQuestion
	progress *model.QuizProgress
	stats    []model.CategoryStat
}

func (f *fakeQuizRepo) ListQuestions(ctx context.Context, category string) ([]model.QuizQuestion, error) {
	if category == "" {
		return append([]model.QuizQuestion(nil), f.bank...), nil
	}
	var out []model.QuizQuestion
	for _, q := range f.bank {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuizRepo) GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.QuizQuestion, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.QuizQuestion
	for _, q := range f.bank {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuizRepo) GetProgress(ctx context.Context, userID string) (*model.QuizProgress, error) {
	return f.progress, nil
}

func (f *fakeQuizRepo) SaveProgress(ctx context.Context, progress *model.QuizProgress) error {
	copied := *progress
	f.progress = &copied
	return nil
}

func (f *fakeQuizRepo) GetCategoryStats(ctx context.Context, userID string) ([]model.CategoryStat, error) {
	return f.stats, nil
}

func (f *fakeQuizRepo) RecordCategoryResult(ctx context.Context, userID, category string, correct, total int) error {
	for i := range f.stats {
		if f.stats[i].Category == category {
			f.stats[i].Correct += correct
			f.stats[i].Total += total
			return nil
		}
	}
	f.stats = append(f.stats, model.CategoryStat{UserID: userID, Category: category, Correct: correct, Total: total})
	return nil
}

func testBank(n int, category string) []model.QuizQuestion {
	bank := make([]model.QuizQuestion, n)
	for i := range bank {
		bank[i] = model.QuizQuestion{
			ID:          string(rune('a' + i)),
			Category:    category,
			Prompt:      "question",
			Options:     []string{"A", "B", "C", "D"},
			AnswerIndex: i % 4,
		}
	}
	return bank
}

func TestStartRoundSamplesWithoutReplacement(t *testing.T) {
	repo := &fakeQuizRepo{bank: testBank(12, "institutions")}
	svc := NewQuizService(repo, zerolog.Nop())

	round, err := svc.StartRound(context.Background(), "institutions")
	if err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if len(round) != quizRoundSize {
		t.Fatalf("round size = %d, want %d", len(round), quizRoundSize)
	}
	seen := map[string]bool{}
	for _, q := range round {
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestStartRoundRejectsSmallBank(t *testing.T) {
	repo := &fakeQuizRepo{bank: testBank(quizRoundSize-1, "histoire")}
	svc := NewQuizService(repo, zerolog.Nop())

	if _, err := svc.StartRound(context.Background(), "histoire"); err != ErrNotEnoughQuestions {
		t.Fatalf("expected ErrNotEnoughQuestions, got %v", err)
	}
}

func TestSubmitRoundScoringAndPerfectBonus(t *testing.T) {
	repo := &fakeQuizRepo{bank: testBank(quizRoundSize, "institutions")}
	svc := NewQuizService(repo, zerolog.Nop())

	answers := make([]QuizAnswer, quizRoundSize)
	for i, q := range repo.bank {
		answers[i] = QuizAnswer{QuestionID: q.ID, ChosenIndex: q.AnswerIndex}
	}
	result, err := svc.SubmitRound(context.Background(), "u1", answers)
	if err != nil {
		t.Fatalf("SubmitRound returned error: %v", err)
	}
	if !result.Perfect {
		t.Fatal("expected a perfect round")
	}
	want := quizRoundSize*pointsPerCorrect + perfectRoundBonus
	if result.PointsEarned != want {
		t.Fatalf("points = %d, want %d", result.PointsEarned, want)
	}
	if repo.progress == nil || repo.progress.Points != want {
		t.Fatalf("progress not persisted: %+v", repo.progress)
	}
	if repo.progress.QuizzesTaken != 1 {
		t.Fatalf("quizzes taken = %d, want 1", repo.progress.QuizzesTaken)
	}
}

func TestSubmitRoundPartialScore(t *testing.T) {
	repo := &fakeQuizRepo{bank: testBank(quizRoundSize, "institutions")}
	svc := NewQuizService(repo, zerolog.Nop())

	answers := make([]QuizAnswer, quizRoundSize)
	for i, q := range repo.bank {
		chosen := q.AnswerIndex
		if i >= 3 {
			chosen = (q.AnswerIndex + 1) % 4
		}
		answers[i] = QuizAnswer{QuestionID: q.ID, ChosenIndex: chosen}
	}
	result, err := svc.SubmitRound(context.Background(), "u1", answers)
	if err != nil {
		t.Fatalf("SubmitRound returned error: %v", err)
	}
	if result.Correct != 3 {
		t.Fatalf("correct = %d, want 3", result.Correct)
	}
	if result.Perfect {
		t.Fatal("3/5 must not be a perfect round")
	}
	if result.PointsEarned != 3*pointsPerCorrect {
		t.Fatalf("points = %d, want %d", result.PointsEarned, 3*pointsPerCorrect)
	}
}

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		points int
		want   int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{450, 5},
		{900, 10},
		{5000, maxLevel},
	}
	for _, tc := range cases {
		if got := levelForPoints(tc.points); got != tc.want {
			t.Errorf("levelForPoints(%d) = %d, want %d", tc.points, got, tc.want)
		}
	}
}

func TestRecommendCategoryPicksWeakest(t *testing.T) {
	repo := &fakeQuizRepo{stats: []model.CategoryStat{
		{Category: "institutions", Correct: 9, Total: 10},
		{Category: "histoire", Correct: 2, Total: 10},
		{Category: "laicite", Correct: 5, Total: 10},
	}}
	svc := NewQuizService(repo, zerolog.Nop())

	got, err := svc.RecommendCategory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RecommendCategory returned error: %v", err)
	}
	if got != "histoire" {
		t.Fatalf("recommended %q, want histoire", got)
	}
}

func TestRecommendCategoryNoHistory(t *testing.T) {
	svc := NewQuizService(&fakeQuizRepo{}, zerolog.Nop())
	got, err := svc.RecommendCategory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RecommendCategory returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty recommendation, got %q", got)
	}
}
