package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumelearn/quiz-engine/internal/model"
)

// QuizRepository handles quiz data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, topic, number_of_questions, time_limit_minutes,
	start_date, end_date, total_marks, passing_marks, question_type,
	is_active, course_id, semester_id, lecturer_id, created_at, updated_at`

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, topic, number_of_questions, time_limit_minutes,
			start_date, end_date, total_marks, passing_marks, question_type,
			is_active, course_id, semester_id, lecturer_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.Topic, q.NumberOfQuestions, q.TimeLimitMinutes,
		q.StartDate, q.EndDate, q.TotalMarks, q.PassingMarks, q.QuestionType,
		q.IsActive, q.CourseID, q.SemesterID, q.LecturerID,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id,
	).Scan(
		&q.ID, &q.Title, &q.Topic, &q.NumberOfQuestions, &q.TimeLimitMinutes,
		&q.StartDate, &q.EndDate, &q.TotalMarks, &q.PassingMarks, &q.QuestionType,
		&q.IsActive, &q.CourseID, &q.SemesterID, &q.LecturerID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByLecturerPaginated retrieves quizzes owned by a lecturer, newest first.
// A lecturerID of 0 lists quizzes for all lecturers.
func (r *QuizRepository) ListByLecturerPaginated(ctx context.Context, lecturerID, limit, offset int) ([]model.Quiz, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE ($1 = 0 OR lecturer_id = $1)`, lecturerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes
		 WHERE ($1 = 0 OR lecturer_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, lecturerID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(
			&q.ID, &q.Title, &q.Topic, &q.NumberOfQuestions, &q.TimeLimitMinutes,
			&q.StartDate, &q.EndDate, &q.TotalMarks, &q.PassingMarks, &q.QuestionType,
			&q.IsActive, &q.CourseID, &q.SemesterID, &q.LecturerID, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, rows.Err()
}

// Update persists quiz field changes.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET title = $1, topic = $2, number_of_questions = $3, time_limit_minutes = $4,
		     start_date = $5, end_date = $6, total_marks = $7, passing_marks = $8,
		     question_type = $9, updated_at = NOW()
		 WHERE id = $10`,
		q.Title, q.Topic, q.NumberOfQuestions, q.TimeLimitMinutes,
		q.StartDate, q.EndDate, q.TotalMarks, q.PassingMarks, q.QuestionType, q.ID,
	)
	return err
}

// Deactivate sets is_active=false. Quizzes are never physically deleted.
func (r *QuizRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}
