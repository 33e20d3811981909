// Package grader scores a frozen question set against submitted answers.
// It is pure computation: no storage, no clock, no network.
package grader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lumelearn/quiz-engine/internal/model"
)

// KeywordThreshold is the fraction of stored keywords that must appear in
// a short-answer response for it to count as correct.
const KeywordThreshold = 0.6

// Submission shape errors.
var (
	ErrAnswerOutOfRange = errors.New("answer references a question index outside the frozen set")
	ErrDuplicateAnswer  = errors.New("two answers reference the same question index")
	ErrTooManyAnswers   = errors.New("more answers than questions")
)

// Result is the full grading outcome for one attempt.
type Result struct {
	Score    float64
	IsPassed bool
	Feedback string
	Analysis model.AttemptAnalysis
}

// Grade computes per-question correctness, the numeric score, pass/fail,
// feedback text and the structured analysis. Answers are correlated to
// questions by index; a question with no answer is graded incorrect, so
// partial submissions grade the same way the timeout path does.
func Grade(questions []model.QuestionSpec, answers []model.Answer, totalMarks, passingMarks float64) (*Result, error) {
	if len(answers) > len(questions) {
		return nil, ErrTooManyAnswers
	}

	byIndex := make(map[int]*model.Answer, len(answers))
	for i := range answers {
		idx := answers[i].QuestionIndex
		if idx < 0 || idx >= len(questions) {
			return nil, fmt.Errorf("%w: index %d of %d questions", ErrAnswerOutOfRange, idx, len(questions))
		}
		if _, dup := byIndex[idx]; dup {
			return nil, fmt.Errorf("%w: index %d", ErrDuplicateAnswer, idx)
		}
		byIndex[idx] = &answers[i]
	}

	results := make([]model.QuestionResult, len(questions))
	correctCount := 0
	for i := range questions {
		q := &questions[i]
		correct := isCorrect(q, byIndex[i])
		if correct {
			correctCount++
		}
		results[i] = model.QuestionResult{
			QuestionIndex: i,
			Type:          q.Type,
			Prompt:        q.Prompt,
			IsCorrect:     correct,
			Explanation:   q.Explanation,
		}
	}

	var score, percentage float64
	if len(questions) > 0 {
		percentage = float64(correctCount) / float64(len(questions)) * 100
		score = float64(correctCount) / float64(len(questions)) * totalMarks
	}
	isPassed := score >= passingMarks

	analysis := buildAnalysis(score, percentage, correctCount, results)

	return &Result{
		Score:    score,
		IsPassed: isPassed,
		Feedback: buildFeedback(score, totalMarks, isPassed, results),
		Analysis: analysis,
	}, nil
}

// isCorrect applies the per-type correctness rule. A nil answer (question
// skipped) is always incorrect.
func isCorrect(q *model.QuestionSpec, a *model.Answer) bool {
	if a == nil {
		return false
	}
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		return a.SelectedOption != nil && *a.SelectedOption == q.CorrectOption
	case model.QuestionTypeTrueFalse:
		return a.BooleanAnswer != nil && q.CorrectBool != nil && *a.BooleanAnswer == *q.CorrectBool
	case model.QuestionTypeShortAnswer:
		return a.TextAnswer != nil && keywordRatio(*a.TextAnswer, q.Keywords) >= KeywordThreshold
	default:
		return false
	}
}

// keywordRatio returns the fraction of keywords found in the text using
// case-insensitive substring matching.
func keywordRatio(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// buildFeedback produces the banded summary line followed by an enumerated
// list of the prompts answered incorrectly.
func buildFeedback(score, totalMarks float64, isPassed bool, results []model.QuestionResult) string {
	var pct float64
	if totalMarks > 0 {
		pct = score / totalMarks * 100
	}

	var sb strings.Builder
	switch {
	case pct >= 90:
		sb.WriteString("Excellent work! You have mastered this topic.")
	case pct >= 80:
		sb.WriteString("Great job! You have a solid understanding of the material.")
	case pct >= 70:
		sb.WriteString("Good effort. You understand most of the material.")
	case isPassed:
		sb.WriteString("You passed, but only just. Review the material to strengthen your understanding.")
	default:
		sb.WriteString("You did not pass this quiz. Review the material and try again.")
	}

	wrong := 0
	for _, r := range results {
		if !r.IsCorrect {
			wrong++
			if wrong == 1 {
				sb.WriteString("\n\nQuestions to review:")
			}
			sb.WriteString(fmt.Sprintf("\n%d. %s", wrong, r.Prompt))
		}
	}
	return sb.String()
}

// Placeholder strings returned instead of empty analysis lists.
const (
	NoStrengths       = "No specific strengths identified"
	NoWeaknesses      = "No specific weaknesses identified"
	NoRecommendations = "No specific recommendations"
)

func buildAnalysis(score, percentage float64, correctCount int, results []model.QuestionResult) model.AttemptAnalysis {
	total := len(results)
	wrongCount := total - correctCount

	correctByType := map[model.QuestionType]int{}
	wrongByType := map[model.QuestionType]int{}
	typeOrder := []model.QuestionType{}
	seen := map[model.QuestionType]bool{}
	for _, r := range results {
		if !seen[r.Type] {
			seen[r.Type] = true
			typeOrder = append(typeOrder, r.Type)
		}
		if r.IsCorrect {
			correctByType[r.Type]++
		} else {
			wrongByType[r.Type]++
		}
	}

	var strengths, weaknesses, recommendations []string

	if total > 0 && float64(correctCount)/float64(total) >= 0.7 {
		strengths = append(strengths, "Overall strong understanding of the material")
	}
	for _, t := range typeOrder {
		if correctByType[t] > 0 {
			strengths = append(strengths, fmt.Sprintf("Answered %s questions correctly", typeLabel(t)))
		}
	}

	if total > 0 && float64(wrongCount)/float64(total) > 0.5 {
		weaknesses = append(weaknesses, "General difficulty with the quiz material")
	}
	for _, t := range typeOrder {
		if wrongByType[t] > 0 {
			weaknesses = append(weaknesses, fmt.Sprintf("Struggled with %s questions", typeLabel(t)))
		}
	}

	if wrongCount > 0 {
		recommendations = append(recommendations, "Review the topic material before your next attempt")
		if total > 0 && float64(wrongCount)/float64(total) > 0.7 {
			recommendations = append(recommendations, "Seek additional help from your lecturer or tutor")
		}
		for _, t := range typeOrder {
			if wrongByType[t] > 0 {
				recommendations = append(recommendations, fmt.Sprintf("Practice more %s questions on this topic", typeLabel(t)))
			}
		}
	}

	if len(strengths) == 0 {
		strengths = []string{NoStrengths}
	}
	if len(weaknesses) == 0 {
		weaknesses = []string{NoWeaknesses}
	}
	if len(recommendations) == 0 {
		recommendations = []string{NoRecommendations}
	}

	return model.AttemptAnalysis{
		Score:           score,
		CorrectCount:    correctCount,
		TotalQuestions:  total,
		Percentage:      percentage,
		QuestionResults: results,
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		Recommendations: recommendations,
	}
}

func typeLabel(t model.QuestionType) string {
	switch t {
	case model.QuestionTypeMultipleChoice:
		return "multiple choice"
	case model.QuestionTypeTrueFalse:
		return "true/false"
	case model.QuestionTypeShortAnswer:
		return "short answer"
	default:
		return string(t)
	}
}
