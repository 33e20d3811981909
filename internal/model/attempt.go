package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states. in_progress is the
// only non-terminal state; submitted, timed_out and completed are sinks.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusTimedOut   AttemptStatus = "timed_out"
	AttemptStatusCompleted  AttemptStatus = "completed"
)

// Terminal reports whether no further transition can leave the status.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusInProgress
}

// Attempt is one student's timed instance of a quiz. Questions are frozen
// at start time and never regenerated, so grading always runs against
// exactly what the student saw.
type Attempt struct {
	ID        uuid.UUID        `json:"id"`
	QuizID    uuid.UUID        `json:"quiz_id"`
	StudentID int              `json:"student_id"`
	StartTime time.Time        `json:"start_time"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Questions []QuestionSpec   `json:"questions"`
	Answers   []Answer         `json:"answers,omitempty"`
	Score     *float64         `json:"score,omitempty"`
	IsPassed  *bool            `json:"is_passed,omitempty"`
	Status    AttemptStatus    `json:"status"`
	Feedback  *string          `json:"feedback,omitempty"`
	Analysis  *AttemptAnalysis `json:"analysis,omitempty"`
}

// Sanitized returns a copy of the attempt with answer keys stripped from
// the question set. Used when serving an attempt that is still in
// progress, so a student cannot read the correct answers off the wire.
func (a *Attempt) Sanitized() *Attempt {
	cp := *a
	cp.Questions = make([]QuestionSpec, len(a.Questions))
	for i, q := range a.Questions {
		cp.Questions[i] = q.Redacted()
	}
	return &cp
}

// QuestionResult is the per-question grading outcome embedded in an
// attempt's analysis.
type QuestionResult struct {
	QuestionIndex int          `json:"question_index"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	IsCorrect     bool         `json:"is_correct"`
	Explanation   string       `json:"explanation,omitempty"`
}

// AttemptAnalysis is the structured breakdown computed at grading time.
// The strengths/weaknesses/recommendations lists are never empty: when no
// entry applies a single placeholder string is used instead.
type AttemptAnalysis struct {
	Score           float64          `json:"score"`
	CorrectCount    int              `json:"correct_count"`
	TotalQuestions  int              `json:"total_questions"`
	Percentage      float64          `json:"percentage"`
	QuestionResults []QuestionResult `json:"question_results"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []string         `json:"recommendations"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
type SubmitAttemptRequest struct {
	Answers []Answer `json:"answers" binding:"required,min=1,dive"`
}

// ManualGradeRequest is the payload for a lecturer grade override.
type ManualGradeRequest struct {
	Score    *float64         `json:"score" binding:"required,min=0"`
	IsPassed *bool            `json:"is_passed" binding:"required"`
	Feedback string           `json:"feedback" binding:"omitempty,max=5000"`
	Analysis *AttemptAnalysis `json:"analysis" binding:"omitempty"`
}
