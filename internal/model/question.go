package model

import (
	"errors"
	"fmt"
)

// MultipleChoiceOptionCount is the fixed number of options generated for
// multiple-choice questions.
const MultipleChoiceOptionCount = 4

// QuestionSpec is one question in an attempt's frozen question set. The
// Type discriminator is authoritative: exactly one variant's fields are
// populated, and Validate enforces that shape before a spec is accepted
// from the external provider or persisted.
//
// Specs are stored as JSONB documents on the attempt row, so the wire and
// storage shapes are identical.
type QuestionSpec struct {
	Type QuestionType `json:"type"`

	// Prompt carries the question text for multiple_choice and
	// short_answer, and the statement to judge for true_false.
	Prompt      string `json:"prompt"`
	Explanation string `json:"explanation,omitempty"`

	// multiple_choice
	Options       []string `json:"options,omitempty"`
	CorrectOption string   `json:"correct_option,omitempty"`

	// true_false
	CorrectBool *bool `json:"correct_bool,omitempty"`

	// short_answer
	SampleAnswer string   `json:"sample_answer,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Validate checks that the populated fields match the declared type.
func (q *QuestionSpec) Validate() error {
	if q.Prompt == "" {
		return errors.New("question prompt is empty")
	}
	switch q.Type {
	case QuestionTypeMultipleChoice:
		if len(q.Options) != MultipleChoiceOptionCount {
			return fmt.Errorf("multiple_choice question needs %d options, got %d", MultipleChoiceOptionCount, len(q.Options))
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectOption {
				found = true
				break
			}
		}
		if !found {
			return errors.New("correct_option is not one of the options")
		}
	case QuestionTypeTrueFalse:
		if q.CorrectBool == nil {
			return errors.New("true_false question missing correct_bool")
		}
	case QuestionTypeShortAnswer:
		if len(q.Keywords) == 0 {
			return errors.New("short_answer question has no keywords")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// Redacted returns a copy of the question with every grading field cleared.
// Options survive because the student needs them to answer.
func (q QuestionSpec) Redacted() QuestionSpec {
	q.CorrectOption = ""
	q.CorrectBool = nil
	q.SampleAnswer = ""
	q.Keywords = nil
	q.Explanation = ""
	return q
}

// Answer is a student's response to one question, correlated to the
// frozen question set by array position.
type Answer struct {
	QuestionIndex  int     `json:"question_index"`
	SelectedOption *string `json:"selected_option,omitempty"`
	BooleanAnswer  *bool   `json:"boolean_answer,omitempty"`
	TextAnswer     *string `json:"text_answer,omitempty"`
}
