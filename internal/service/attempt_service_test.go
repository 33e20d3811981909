package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumelearn/quiz-engine/internal/generator"
	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/rs/zerolog"
)

// fakeQuizGetter serves quizzes from a map; missing IDs yield ErrNoRows
// like the pgx-backed repository does.
type fakeQuizGetter struct {
	quizzes map[uuid.UUID]*model.Quiz
}

func (f *fakeQuizGetter) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

// fakeAttemptStore is an in-memory attemptStore mirroring the repository's
// contract: Create enforces at most one in-progress attempt per
// (quiz, student) pair, Finalize only lands on in-progress rows.
type fakeAttemptStore struct {
	attempts map[uuid.UUID]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: map[uuid.UUID]*model.Attempt{}}
}

func (f *fakeAttemptStore) Create(ctx context.Context, a *model.Attempt) error {
	for _, existing := range f.attempts {
		if existing.QuizID == a.QuizID && existing.StudentID == a.StudentID &&
			existing.Status == model.AttemptStatusInProgress {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.StartTime = time.Now()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) Finalize(ctx context.Context, id uuid.UUID, answers []model.Answer, endTime time.Time, score float64, isPassed bool, feedback string, analysis *model.AttemptAnalysis, status model.AttemptStatus) (bool, error) {
	a, ok := f.attempts[id]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	a.Answers = answers
	a.EndTime = &endTime
	a.Score = &score
	a.IsPassed = &isPassed
	a.Feedback = &feedback
	a.Analysis = analysis
	a.Status = status
	return true, nil
}

func (f *fakeAttemptStore) Override(ctx context.Context, id uuid.UUID, score float64, isPassed bool, feedback *string, analysis *model.AttemptAnalysis) (bool, error) {
	a, ok := f.attempts[id]
	if !ok {
		return false, nil
	}
	a.Score = &score
	a.IsPassed = &isPassed
	if feedback != nil {
		a.Feedback = feedback
	}
	if analysis != nil {
		a.Analysis = analysis
	}
	a.Status = model.AttemptStatusCompleted
	return true, nil
}

func (f *fakeAttemptStore) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// fallbackSource wraps the deterministic generator as a questionSource.
type fallbackSource struct{}

func (fallbackSource) Generate(ctx context.Context, topic string, count int, qtype model.QuestionType, courseContext, additionalContext string) []model.QuestionSpec {
	return generator.Fallback(topic, count, qtype)
}

// recordingNotifier captures emitted events and optionally fails.
type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Emit(ctx context.Context, ev Event) error {
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func activeQuiz(now time.Time) *model.Quiz {
	return &model.Quiz{
		ID:                uuid.New(),
		Title:             "Networking Basics",
		Topic:             "networking",
		NumberOfQuestions: 3,
		TimeLimitMinutes:  30,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(time.Hour),
		TotalMarks:        100,
		PassingMarks:      60,
		QuestionType:      model.QuestionTypeMultipleChoice,
		IsActive:          true,
		CourseID:          1,
		SemesterID:        1,
		LecturerID:        7,
	}
}

type attemptFixture struct {
	svc      *AttemptService
	store    *fakeAttemptStore
	quizzes  *fakeQuizGetter
	notifier *recordingNotifier
	quiz     *model.Quiz
	now      time.Time
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	quiz := activeQuiz(now)
	f := &attemptFixture{
		store:    newFakeAttemptStore(),
		quizzes:  &fakeQuizGetter{quizzes: map[uuid.UUID]*model.Quiz{quiz.ID: quiz}},
		notifier: &recordingNotifier{},
		quiz:     quiz,
		now:      now,
	}
	f.svc = NewAttemptService(f.quizzes, f.store, fallbackSource{}, f.notifier, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func correctAnswers(questions []model.QuestionSpec) []model.Answer {
	answers := make([]model.Answer, len(questions))
	for i, q := range questions {
		opt := q.CorrectOption
		answers[i] = model.Answer{QuestionIndex: i, SelectedOption: &opt}
	}
	return answers
}

func TestStartAttempt(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, err := f.svc.Start(context.Background(), f.quiz.ID, 42)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		t.Errorf("Status = %q, want in_progress", attempt.Status)
	}
	if len(attempt.Questions) != f.quiz.NumberOfQuestions {
		t.Errorf("Questions = %d, want %d", len(attempt.Questions), f.quiz.NumberOfQuestions)
	}
	if attempt.Score != nil {
		t.Error("Score set on a fresh attempt")
	}
}

func TestStartAttemptWindowChecks(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *model.Quiz)
		wantErr error
	}{
		{
			name:    "inactive quiz",
			mutate:  func(q *model.Quiz) { q.IsActive = false },
			wantErr: ErrQuizNotActive,
		},
		{
			name:    "not yet open",
			mutate:  func(q *model.Quiz) { q.StartDate = q.StartDate.Add(2 * time.Hour) },
			wantErr: ErrQuizNotYetOpen,
		},
		{
			name:    "window closed",
			mutate:  func(q *model.Quiz) { q.EndDate = q.EndDate.Add(-2 * time.Hour) },
			wantErr: ErrQuizExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t)
			tt.mutate(f.quiz)

			_, err := f.svc.Start(context.Background(), f.quiz.ID, 42)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartAttemptUnknownQuiz(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.Start(context.Background(), uuid.New(), 42)
	if !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("Start() error = %v, want ErrQuizNotFound", err)
	}
}

func TestStartAttemptDuplicate(t *testing.T) {
	f := newAttemptFixture(t)

	if _, err := f.svc.Start(context.Background(), f.quiz.ID, 42); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	_, err := f.svc.Start(context.Background(), f.quiz.ID, 42)
	if !errors.Is(err, ErrDuplicateAttempt) {
		t.Errorf("second Start() error = %v, want ErrDuplicateAttempt", err)
	}

	// A different student is unaffected.
	if _, err := f.svc.Start(context.Background(), f.quiz.ID, 43); err != nil {
		t.Errorf("Start() for other student error = %v", err)
	}
}

func TestSubmitAttempt(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, err := f.svc.Start(context.Background(), f.quiz.ID, 42)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	graded, err := f.svc.Submit(context.Background(), attempt.ID, correctAnswers(attempt.Questions))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if graded.Status != model.AttemptStatusSubmitted {
		t.Errorf("Status = %q, want submitted", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 100 {
		t.Errorf("Score = %v, want 100", graded.Score)
	}
	if graded.IsPassed == nil || !*graded.IsPassed {
		t.Error("IsPassed = false, want true")
	}

	if len(f.notifier.events) != 1 || f.notifier.events[0].Type != EventResultReady {
		t.Errorf("events = %+v, want one result_ready", f.notifier.events)
	}
}

func TestSubmitAfterTimeLimitIsTimedOut(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, err := f.svc.Start(context.Background(), f.quiz.ID, 42)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Past the 30 minute limit: still graded, recorded as timed_out.
	f.now = f.now.Add(31 * time.Minute)
	graded, err := f.svc.Submit(context.Background(), attempt.ID, correctAnswers(attempt.Questions))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if graded.Status != model.AttemptStatusTimedOut {
		t.Errorf("Status = %q, want timed_out", graded.Status)
	}
	if graded.Score == nil || *graded.Score != 100 {
		t.Errorf("Score = %v, want 100 even when timed out", graded.Score)
	}
}

func TestSubmitTerminalAttemptRejected(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, _ := f.svc.Start(context.Background(), f.quiz.ID, 42)
	answers := correctAnswers(attempt.Questions)
	if _, err := f.svc.Submit(context.Background(), attempt.ID, answers); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := f.svc.Submit(context.Background(), attempt.ID, answers)
	if !errors.Is(err, ErrInvalidAttemptState) {
		t.Errorf("second Submit() error = %v, want ErrInvalidAttemptState", err)
	}
}

func TestSubmitMalformedAnswersRejected(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, _ := f.svc.Start(context.Background(), f.quiz.ID, 42)

	opt := "x"
	bad := []model.Answer{{QuestionIndex: 99, SelectedOption: &opt}}
	_, err := f.svc.Submit(context.Background(), attempt.ID, bad)
	if !errors.Is(err, ErrMalformedSubmission) {
		t.Fatalf("Submit() error = %v, want ErrMalformedSubmission", err)
	}

	// The attempt stays in progress and a valid submission still lands.
	if _, err := f.svc.Submit(context.Background(), attempt.ID, correctAnswers(attempt.Questions)); err != nil {
		t.Errorf("valid Submit() after rejection error = %v", err)
	}
}

func TestSubmitUnknownAttempt(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("Submit() error = %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmitSucceedsWhenNotifierFails(t *testing.T) {
	f := newAttemptFixture(t)
	f.notifier.err = errors.New("redis down")

	attempt, _ := f.svc.Start(context.Background(), f.quiz.ID, 42)
	graded, err := f.svc.Submit(context.Background(), attempt.ID, correctAnswers(attempt.Questions))
	if err != nil {
		t.Fatalf("Submit() error = %v, want nil despite notifier failure", err)
	}
	if graded.Status != model.AttemptStatusSubmitted {
		t.Errorf("Status = %q, want submitted", graded.Status)
	}
}

func TestManualGrade(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, _ := f.svc.Start(context.Background(), f.quiz.ID, 42)
	if _, err := f.svc.Submit(context.Background(), attempt.ID, correctAnswers(attempt.Questions)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	feedback := "Regraded after appeal."
	regraded, err := f.svc.ManualGrade(context.Background(), attempt.ID, 55, false, &feedback, nil)
	if err != nil {
		t.Fatalf("ManualGrade() error = %v", err)
	}
	if regraded.Status != model.AttemptStatusCompleted {
		t.Errorf("Status = %q, want completed", regraded.Status)
	}
	if *regraded.Score != 55 || *regraded.IsPassed {
		t.Errorf("Score/IsPassed = %v/%v, want 55/false", *regraded.Score, *regraded.IsPassed)
	}
	if *regraded.Feedback != feedback {
		t.Errorf("Feedback = %q, want %q", *regraded.Feedback, feedback)
	}
}

func TestManualGradeUnknownAttempt(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.ManualGrade(context.Background(), uuid.New(), 50, true, nil, nil)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("ManualGrade() error = %v, want ErrAttemptNotFound", err)
	}
}
