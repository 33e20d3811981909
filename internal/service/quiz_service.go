package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/lumelearn/quiz-engine/internal/repository"
	"github.com/lumelearn/quiz-engine/internal/response"
	"github.com/rs/zerolog"
)

// ErrNotQuizOwner rejects writes by a lecturer who does not own the quiz.
var ErrNotQuizOwner = errors.New("not the owner of this quiz")

// QuizService handles quiz authoring: create, update, deactivate.
type QuizService struct {
	quizRepo *repository.QuizRepository
	notifier Notifier
	log      zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizRepo *repository.QuizRepository, notifier Notifier, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizRepo: quizRepo,
		notifier: notifier,
		log:      log.With().Str("component", "quiz_service").Logger(),
	}
}

// Create validates the quiz invariants and inserts it as active. A
// quiz_published intent is queued; its failure does not roll back the
// insert.
func (s *QuizService) Create(ctx context.Context, quiz *model.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	quiz.IsActive = true

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}

	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("topic", quiz.Topic).
		Int("lecturer_id", quiz.LecturerID).
		Msg("Quiz created")

	ev := Event{Type: EventQuizPublished, QuizID: quiz.ID.String(), EmittedAt: quiz.CreatedAt}
	if err := s.notifier.Emit(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Failed to queue publish notification")
	}
	return nil
}

// GetByID retrieves a quiz by its UUID.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

// ListByLecturer retrieves quizzes with pagination. A lecturerID of 0
// lists all quizzes.
func (s *QuizService) ListByLecturer(ctx context.Context, lecturerID, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	quizzes, total, err := s.quizRepo.ListByLecturerPaginated(ctx, lecturerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if quizzes == nil {
		quizzes = []model.Quiz{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return quizzes, pagination, nil
}

// Update applies a partial update to a quiz the lecturer owns and
// re-validates the invariants against the merged result.
func (s *QuizService) Update(ctx context.Context, lecturerID int, id uuid.UUID, req *model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lecturerID != 0 && quiz.LecturerID != lecturerID {
		return nil, ErrNotQuizOwner
	}

	if req.Title != "" {
		quiz.Title = req.Title
	}
	if req.Topic != "" {
		quiz.Topic = req.Topic
	}
	if req.NumberOfQuestions != nil {
		quiz.NumberOfQuestions = *req.NumberOfQuestions
	}
	if req.TimeLimitMinutes != nil {
		quiz.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.StartDate != nil {
		quiz.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		quiz.EndDate = *req.EndDate
	}
	if req.TotalMarks != nil {
		quiz.TotalMarks = *req.TotalMarks
	}
	if req.PassingMarks != nil {
		quiz.PassingMarks = *req.PassingMarks
	}
	if req.QuestionType != "" {
		quiz.QuestionType = model.QuestionType(req.QuestionType)
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

// Deactivate sets is_active=false on a quiz the lecturer owns. Running
// attempts are unaffected; new starts are rejected.
func (s *QuizService) Deactivate(ctx context.Context, lecturerID int, id uuid.UUID) error {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lecturerID != 0 && quiz.LecturerID != lecturerID {
		return ErrNotQuizOwner
	}

	if err := s.quizRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate quiz: %w", err)
	}

	s.log.Info().Str("quiz_id", id.String()).Msg("Quiz deactivated")
	return nil
}
