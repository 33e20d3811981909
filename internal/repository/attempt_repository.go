package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumelearn/quiz-engine/internal/model"
)

// GradedAttempt is the flattened row used by the analytics aggregator:
// one graded attempt joined with its quiz identity.
type GradedAttempt struct {
	QuizID    uuid.UUID           `json:"quiz_id"`
	QuizTitle string              `json:"quiz_title"`
	StudentID int                 `json:"student_id"`
	Score     float64             `json:"score"`
	IsPassed  bool                `json:"is_passed"`
	Status    model.AttemptStatus `json:"status"`
}

// AttemptRepository handles quiz attempt data access. The frozen question
// set, answers and analysis are stored as JSONB documents on the row.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, quiz_id, student_id, start_time, end_time,
	questions, answers, score, is_passed, status, feedback, analysis`

// Create inserts a new in-progress attempt with its frozen question set.
// The partial unique index on (quiz_id, student_id) WHERE status =
// 'in_progress' makes the at-most-one-active invariant race-free: a
// concurrent insert for the same pair hits the conflict clause and this
// call returns pgx.ErrNoRows.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	questionsJSON, err := json.Marshal(a.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, student_id, status, questions)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (quiz_id, student_id) WHERE status = 'in_progress' DO NOTHING
		 RETURNING id, start_time`,
		a.QuizID, a.StudentID, model.AttemptStatusInProgress, questionsJSON,
	).Scan(&a.ID, &a.StartTime)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM quiz_attempts WHERE id = $1`, id)
	return scanAttempt(row)
}

// Finalize moves an in-progress attempt to a terminal status with its
// grading outcome in a single guarded update. It returns false when the
// attempt was not in progress, so a re-submission is rejected instead of
// re-graded.
func (r *AttemptRepository) Finalize(ctx context.Context, id uuid.UUID, answers []model.Answer, endTime time.Time, score float64, isPassed bool, feedback string, analysis *model.AttemptAnalysis, status model.AttemptStatus) (bool, error) {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return false, fmt.Errorf("marshal answers: %w", err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return false, fmt.Errorf("marshal analysis: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts
		 SET answers = $1, end_time = $2, score = $3, is_passed = $4,
		     feedback = $5, analysis = $6, status = $7
		 WHERE id = $8 AND status = $9`,
		answersJSON, endTime, score, isPassed,
		feedback, analysisJSON, status, id, model.AttemptStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Override applies a lecturer's manual grade. Unlike Finalize it ignores
// the current status: any attempt moves to completed.
func (r *AttemptRepository) Override(ctx context.Context, id uuid.UUID, score float64, isPassed bool, feedback *string, analysis *model.AttemptAnalysis) (bool, error) {
	var analysisJSON []byte
	if analysis != nil {
		var err error
		analysisJSON, err = json.Marshal(analysis)
		if err != nil {
			return false, fmt.Errorf("marshal analysis: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts
		 SET score = $1, is_passed = $2,
		     feedback = COALESCE($3, feedback),
		     analysis = COALESCE($4, analysis),
		     end_time = COALESCE(end_time, NOW()),
		     status = $5
		 WHERE id = $6`,
		score, isPassed, feedback, analysisJSON, model.AttemptStatusCompleted, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByStudent retrieves all attempts for a student, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM quiz_attempts
		 WHERE student_id = $1
		 ORDER BY start_time DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListGradedByQuiz retrieves the graded attempts feeding quiz statistics:
// submitted and completed attempts, plus timed-out attempts that carry a
// score. In-progress attempts never have a score, so the score filter is
// the whole rule.
func (r *AttemptRepository) ListGradedByQuiz(ctx context.Context, quizID uuid.UUID) ([]GradedAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.quiz_id, q.title, a.student_id, a.score, a.is_passed, a.status
		 FROM quiz_attempts a
		 JOIN quizzes q ON a.quiz_id = q.id
		 WHERE a.quiz_id = $1 AND a.score IS NOT NULL`,
		quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGraded(rows)
}

// ListGradedByCourse retrieves graded attempts across every quiz of a
// course/semester for the class-performance rollup.
func (r *AttemptRepository) ListGradedByCourse(ctx context.Context, courseID, semesterID int) ([]GradedAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.quiz_id, q.title, a.student_id, a.score, a.is_passed, a.status
		 FROM quiz_attempts a
		 JOIN quizzes q ON a.quiz_id = q.id
		 WHERE q.course_id = $1 AND q.semester_id = $2 AND a.score IS NOT NULL
		 ORDER BY q.created_at, a.student_id`,
		courseID, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGraded(rows)
}

func collectGraded(rows pgx.Rows) ([]GradedAttempt, error) {
	var graded []GradedAttempt
	for rows.Next() {
		var g GradedAttempt
		if err := rows.Scan(&g.QuizID, &g.QuizTitle, &g.StudentID, &g.Score, &g.IsPassed, &g.Status); err != nil {
			return nil, err
		}
		graded = append(graded, g)
	}
	return graded, rows.Err()
}

// scanAttempt decodes one attempt row, unmarshalling the JSONB documents.
func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	var questionsJSON, answersJSON, analysisJSON []byte

	err := row.Scan(
		&a.ID, &a.QuizID, &a.StudentID, &a.StartTime, &a.EndTime,
		&questionsJSON, &answersJSON, &a.Score, &a.IsPassed, &a.Status,
		&a.Feedback, &analysisJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questionsJSON, &a.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if len(analysisJSON) > 0 {
		a.Analysis = &model.AttemptAnalysis{}
		if err := json.Unmarshal(analysisJSON, a.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	return a, nil
}
