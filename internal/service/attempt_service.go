package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumelearn/quiz-engine/internal/grader"
	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/rs/zerolog"
)

// Domain errors for the attempt lifecycle. Handlers map these to typed
// API error codes; none of them leaves persisted state half-written.
var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrQuizNotActive       = errors.New("quiz is not active")
	ErrQuizNotYetOpen      = errors.New("quiz is not open yet")
	ErrQuizExpired         = errors.New("quiz availability window has closed")
	ErrDuplicateAttempt    = errors.New("an attempt is already in progress for this quiz")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrInvalidAttemptState = errors.New("attempt is not in progress")
	ErrMalformedSubmission = errors.New("malformed submission")
)

// quizGetter is the slice of QuizRepository the attempt service needs.
type quizGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
}

// attemptStore is the slice of AttemptRepository the attempt service
// needs. Create must return pgx.ErrNoRows when the at-most-one-active
// uniqueness guard rejects the insert.
type attemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	Finalize(ctx context.Context, id uuid.UUID, answers []model.Answer, endTime time.Time, score float64, isPassed bool, feedback string, analysis *model.AttemptAnalysis, status model.AttemptStatus) (bool, error)
	Override(ctx context.Context, id uuid.UUID, score float64, isPassed bool, feedback *string, analysis *model.AttemptAnalysis) (bool, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error)
}

// questionSource produces the frozen question set for a new attempt.
type questionSource interface {
	Generate(ctx context.Context, topic string, count int, qtype model.QuestionType, courseContext, additionalContext string) []model.QuestionSpec
}

// AttemptService owns the attempt state machine: in_progress is the only
// non-terminal state, submitted/timed_out/completed are sinks.
type AttemptService struct {
	quizRepo    quizGetter
	attemptRepo attemptStore
	questions   questionSource
	notifier    Notifier
	log         zerolog.Logger
	now         func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	quizRepo quizGetter,
	attemptRepo attemptStore,
	questions questionSource,
	notifier Notifier,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		questions:   questions,
		notifier:    notifier,
		log:         log.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

// Start validates the quiz's scheduling window, generates and freezes the
// question set, and persists a new in-progress attempt. The duplicate
// check rides on the store's uniqueness guard, so concurrent starts for
// the same (quiz, student) pair cannot both succeed.
func (s *AttemptService) Start(ctx context.Context, quizID uuid.UUID, studentID int) (*model.Attempt, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if !quiz.IsActive {
		return nil, ErrQuizNotActive
	}
	now := s.now()
	if now.Before(quiz.StartDate) {
		return nil, ErrQuizNotYetOpen
	}
	if now.After(quiz.EndDate) {
		return nil, ErrQuizExpired
	}

	courseContext := fmt.Sprintf("course %d, semester %d", quiz.CourseID, quiz.SemesterID)
	questions := s.questions.Generate(ctx, quiz.Topic, quiz.NumberOfQuestions, quiz.QuestionType, courseContext, "")

	attempt := &model.Attempt{
		QuizID:    quizID,
		StudentID: studentID,
		Questions: questions,
		Status:    model.AttemptStatusInProgress,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicateAttempt
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("quiz_id", quizID.String()).
		Int("student_id", studentID).
		Int("questions", len(questions)).
		Msg("Attempt started")

	return attempt, nil
}

// Submit grades an in-progress attempt and moves it to a terminal state.
// Submissions past the time limit are graded identically but recorded as
// timed_out. The guarded finalize rejects a second submission instead of
// re-grading.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, answers []model.Answer) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, ErrInvalidAttemptState
	}

	quiz, err := s.quizRepo.GetByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	result, err := grader.Grade(attempt.Questions, answers, quiz.TotalMarks, quiz.PassingMarks)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSubmission, err)
	}

	now := s.now()
	status := model.AttemptStatusSubmitted
	if now.Sub(attempt.StartTime) > time.Duration(quiz.TimeLimitMinutes)*time.Minute {
		status = model.AttemptStatusTimedOut
	}

	ok, err := s.attemptRepo.Finalize(ctx, attempt.ID, answers, now,
		result.Score, result.IsPassed, result.Feedback, &result.Analysis, status)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	if !ok {
		// Lost the race against another submit for the same attempt.
		return nil, ErrInvalidAttemptState
	}

	attempt.Answers = answers
	attempt.EndTime = &now
	attempt.Score = &result.Score
	attempt.IsPassed = &result.IsPassed
	attempt.Feedback = &result.Feedback
	attempt.Analysis = &result.Analysis
	attempt.Status = status

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("score", result.Score).
		Bool("is_passed", result.IsPassed).
		Str("status", string(status)).
		Msg("Attempt submitted")

	s.emitResultReady(ctx, attempt)

	return attempt, nil
}

// ManualGrade applies a lecturer override: the attempt moves to completed
// regardless of its prior status and the grade fields are overwritten.
func (s *AttemptService) ManualGrade(ctx context.Context, attemptID uuid.UUID, score float64, isPassed bool, feedback *string, analysis *model.AttemptAnalysis) (*model.Attempt, error) {
	ok, err := s.attemptRepo.Override(ctx, attemptID, score, isPassed, feedback, analysis)
	if err != nil {
		return nil, fmt.Errorf("override attempt: %w", err)
	}
	if !ok {
		return nil, ErrAttemptNotFound
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", score).
		Msg("Attempt manually graded")

	s.emitResultReady(ctx, attempt)

	return attempt, nil
}

// Get retrieves a single attempt.
func (s *AttemptService) Get(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// ListByStudent retrieves a student's attempt history.
func (s *AttemptService) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	return s.attemptRepo.ListByStudent(ctx, studentID)
}

// emitResultReady queues a result_ready intent. Dispatch failures are
// logged and swallowed: grading correctness never depends on delivery.
func (s *AttemptService) emitResultReady(ctx context.Context, attempt *model.Attempt) {
	ev := Event{
		Type:      EventResultReady,
		QuizID:    attempt.QuizID.String(),
		AttemptID: attempt.ID.String(),
		StudentID: attempt.StudentID,
		EmittedAt: s.now(),
	}
	if err := s.notifier.Emit(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to queue result notification")
	}
}
