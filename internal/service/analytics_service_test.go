package service

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/lumelearn/quiz-engine/internal/repository"
	"github.com/rs/zerolog"
)

// fakeGradedLister serves canned graded attempts.
type fakeGradedLister struct {
	byQuiz   map[uuid.UUID][]repository.GradedAttempt
	byCourse []repository.GradedAttempt
}

func (f *fakeGradedLister) ListGradedByQuiz(ctx context.Context, quizID uuid.UUID) ([]repository.GradedAttempt, error) {
	return f.byQuiz[quizID], nil
}

func (f *fakeGradedLister) ListGradedByCourse(ctx context.Context, courseID, semesterID int) ([]repository.GradedAttempt, error) {
	return f.byCourse, nil
}

func graded(quizID uuid.UUID, title string, studentID int, score float64, passed bool) repository.GradedAttempt {
	return repository.GradedAttempt{
		QuizID:    quizID,
		QuizTitle: title,
		StudentID: studentID,
		Score:     score,
		IsPassed:  passed,
	}
}

func TestQuizStatistics(t *testing.T) {
	quizID := uuid.New()
	lister := &fakeGradedLister{
		byQuiz: map[uuid.UUID][]repository.GradedAttempt{
			quizID: {
				graded(quizID, "q", 1, 80, true),
				graded(quizID, "q", 2, 40, false),
				graded(quizID, "q", 3, 90, true),
				graded(quizID, "q", 4, 70, true),
			},
		},
	}
	svc := NewAnalyticsService(lister, nil, zerolog.Nop())

	stats, err := svc.QuizStatistics(context.Background(), quizID)
	if err != nil {
		t.Fatalf("QuizStatistics() error = %v", err)
	}
	if stats.TotalAttempts != 4 {
		t.Errorf("TotalAttempts = %d, want 4", stats.TotalAttempts)
	}
	if stats.PassedAttempts != 3 || stats.FailedAttempts != 1 {
		t.Errorf("Passed/Failed = %d/%d, want 3/1", stats.PassedAttempts, stats.FailedAttempts)
	}
	if stats.PassRate != 75 {
		t.Errorf("PassRate = %v, want 75", stats.PassRate)
	}
	if stats.AverageScore != 70 {
		t.Errorf("AverageScore = %v, want 70", stats.AverageScore)
	}
}

func TestQuizStatisticsNoAttempts(t *testing.T) {
	svc := NewAnalyticsService(&fakeGradedLister{}, nil, zerolog.Nop())

	stats, err := svc.QuizStatistics(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("QuizStatistics() error = %v", err)
	}
	if stats.TotalAttempts != 0 {
		t.Errorf("TotalAttempts = %d, want 0", stats.TotalAttempts)
	}
	// Zero attempts must yield zeros, never NaN.
	if stats.PassRate != 0 || stats.AverageScore != 0 {
		t.Errorf("PassRate/AverageScore = %v/%v, want 0/0", stats.PassRate, stats.AverageScore)
	}
	if math.IsNaN(stats.PassRate) || math.IsNaN(stats.AverageScore) {
		t.Error("statistics contain NaN")
	}
}

func TestClassPerformanceGrouping(t *testing.T) {
	quizA := uuid.New()
	quizB := uuid.New()
	lister := &fakeGradedLister{
		byCourse: []repository.GradedAttempt{
			graded(quizA, "Quiz A", 1, 100, true),
			graded(quizB, "Quiz B", 1, 50, false),
			graded(quizA, "Quiz A", 2, 60, true),
		},
	}
	svc := NewAnalyticsService(lister, nil, zerolog.Nop())

	perf, err := svc.ClassPerformance(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("ClassPerformance() error = %v", err)
	}

	if len(perf.PerQuiz) != 2 {
		t.Fatalf("PerQuiz len = %d, want 2", len(perf.PerQuiz))
	}
	// First-seen order is preserved.
	if perf.PerQuiz[0].QuizID != quizA || perf.PerQuiz[1].QuizID != quizB {
		t.Error("PerQuiz not in first-seen order")
	}
	if perf.PerQuiz[0].QuizTitle != "Quiz A" {
		t.Errorf("QuizTitle = %q, want %q", perf.PerQuiz[0].QuizTitle, "Quiz A")
	}
	if perf.PerQuiz[0].Stats.TotalAttempts != 2 || perf.PerQuiz[0].Stats.AverageScore != 80 {
		t.Errorf("quiz A stats = %+v, want 2 attempts avg 80", perf.PerQuiz[0].Stats)
	}

	if len(perf.PerStudent) != 2 {
		t.Fatalf("PerStudent len = %d, want 2", len(perf.PerStudent))
	}
	if perf.PerStudent[0].StudentID != 1 || perf.PerStudent[0].Stats.TotalAttempts != 2 {
		t.Errorf("student 1 rollup = %+v, want 2 attempts", perf.PerStudent[0])
	}
	if perf.PerStudent[0].Stats.PassRate != 50 {
		t.Errorf("student 1 pass rate = %v, want 50", perf.PerStudent[0].Stats.PassRate)
	}

	if perf.Overall.TotalAttempts != 3 || perf.Overall.AverageScore != 70 {
		t.Errorf("overall = %+v, want 3 attempts avg 70", perf.Overall)
	}
}

func TestClassPerformanceEmpty(t *testing.T) {
	svc := NewAnalyticsService(&fakeGradedLister{}, nil, zerolog.Nop())

	perf, err := svc.ClassPerformance(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("ClassPerformance() error = %v", err)
	}
	if len(perf.PerQuiz) != 0 || len(perf.PerStudent) != 0 {
		t.Errorf("rollups = %d/%d entries, want empty", len(perf.PerQuiz), len(perf.PerStudent))
	}
	if perf.Overall.TotalAttempts != 0 || perf.Overall.PassRate != 0 {
		t.Errorf("overall = %+v, want zeros", perf.Overall)
	}
}
