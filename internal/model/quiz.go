package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeMixed          QuestionType = "mixed"
)

// Quiz invariant violations surfaced by Validate.
var (
	ErrPassingExceedsTotal = errors.New("passing marks exceed total marks")
	ErrWindowInverted      = errors.New("start date must be before end date")
)

// Quiz is the authoring-time definition of a quiz. Quizzes are never
// physically deleted; deactivation sets is_active=false.
type Quiz struct {
	ID                uuid.UUID    `json:"id"`
	Title             string       `json:"title"`
	Topic             string       `json:"topic"`
	NumberOfQuestions int          `json:"number_of_questions"`
	TimeLimitMinutes  int          `json:"time_limit_minutes"`
	StartDate         time.Time    `json:"start_date"`
	EndDate           time.Time    `json:"end_date"`
	TotalMarks        float64      `json:"total_marks"`
	PassingMarks      float64      `json:"passing_marks"`
	QuestionType      QuestionType `json:"question_type"`
	IsActive          bool         `json:"is_active"`
	CourseID          int          `json:"course_id"`
	SemesterID        int          `json:"semester_id"`
	LecturerID        int          `json:"lecturer_id"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Validate checks the quiz invariants that cannot be expressed as
// per-field binding rules.
func (q *Quiz) Validate() error {
	if q.PassingMarks > q.TotalMarks {
		return ErrPassingExceedsTotal
	}
	if !q.StartDate.Before(q.EndDate) {
		return ErrWindowInverted
	}
	return nil
}

// CreateQuizRequest is the payload for creating a new quiz.
type CreateQuizRequest struct {
	Title             string    `json:"title" binding:"required,min=3,max=255"`
	Topic             string    `json:"topic" binding:"required,min=2,max=255"`
	NumberOfQuestions int       `json:"number_of_questions" binding:"required,min=1,max=100"`
	TimeLimitMinutes  int       `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
	TotalMarks        float64   `json:"total_marks" binding:"required,gt=0"`
	PassingMarks      float64   `json:"passing_marks" binding:"min=0"`
	QuestionType      string    `json:"question_type" binding:"required,oneof=multiple_choice true_false short_answer mixed"`
	CourseID          int       `json:"course_id" binding:"required,min=1"`
	SemesterID        int       `json:"semester_id" binding:"required,min=1"`
}

// UpdateQuizRequest is the payload for updating an existing quiz.
// Zero-valued fields are left unchanged.
type UpdateQuizRequest struct {
	Title             string     `json:"title" binding:"omitempty,min=3,max=255"`
	Topic             string     `json:"topic" binding:"omitempty,min=2,max=255"`
	NumberOfQuestions *int       `json:"number_of_questions" binding:"omitempty,min=1,max=100"`
	TimeLimitMinutes  *int       `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	StartDate         *time.Time `json:"start_date" binding:"omitempty"`
	EndDate           *time.Time `json:"end_date" binding:"omitempty"`
	TotalMarks        *float64   `json:"total_marks" binding:"omitempty,gt=0"`
	PassingMarks      *float64   `json:"passing_marks" binding:"omitempty,min=0"`
	QuestionType      string     `json:"question_type" binding:"omitempty,oneof=multiple_choice true_false short_answer mixed"`
}
