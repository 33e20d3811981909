package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lumelearn/quiz-engine/internal/config"
	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/rs/zerolog"
)

// chatProvider is the single outbound call the generator makes. It is an
// interface so tests can inject a fake without a network.
type chatProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces question sets for quiz attempts. When a provider is
// configured it is asked first; any provider failure is absorbed and the
// deterministic template fallback is used, so Generate never fails.
type Generator struct {
	provider chatProvider
	timeout  time.Duration
	log      zerolog.Logger
}

// New creates a Generator. The provider credential is injected here, never
// read from the process environment by the generator itself. An empty API
// key disables the provider and every call uses the fallback.
func New(cfg *config.Config, log zerolog.Logger) *Generator {
	g := &Generator{
		timeout: cfg.ProviderTimeout,
		log:     log.With().Str("component", "question_generator").Logger(),
	}
	if cfg.OpenAIAPIKey != "" {
		g.provider = newOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
	return g
}

// Generate returns exactly count question specs for the given topic and
// type. It never returns an error: provider failures fall back to the
// deterministic template generator.
func (g *Generator) Generate(ctx context.Context, topic string, count int, qtype model.QuestionType, courseContext, additionalContext string) []model.QuestionSpec {
	if g.provider == nil {
		return Fallback(topic, count, qtype)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := buildPrompt(topic, count, qtype, courseContext, additionalContext)

	raw, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.log.Warn().Err(err).Str("topic", topic).Msg("Provider call failed, using fallback")
		return Fallback(topic, count, qtype)
	}

	questions, err := parseProviderResponse(raw, count, qtype)
	if err != nil {
		g.log.Warn().Err(err).Str("topic", topic).Msg("Provider response rejected, using fallback")
		return Fallback(topic, count, qtype)
	}

	g.log.Debug().Str("topic", topic).Int("count", count).Msg("Questions generated by provider")
	return questions
}

// parseProviderResponse decodes and validates the provider's JSON output.
// The whole response is rejected if any entry is malformed or the count is
// wrong, so a partially usable response never leaks half-validated
// questions into an attempt.
func parseProviderResponse(raw string, count int, qtype model.QuestionType) ([]model.QuestionSpec, error) {
	// Providers occasionally wrap the JSON array in markdown fences.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var questions []model.QuestionSpec
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("unmarshal provider response: %w", err)
	}

	if len(questions) != count {
		return nil, fmt.Errorf("provider returned %d questions, expected %d", len(questions), count)
	}

	for i := range questions {
		if qtype != model.QuestionTypeMixed && questions[i].Type != qtype {
			return nil, fmt.Errorf("question %d has type %q, expected %q", i, questions[i].Type, qtype)
		}
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %d invalid: %w", i, err)
		}
	}

	return questions, nil
}

// buildPrompt assembles the provider instruction enumerating the requested
// count, topic, and per-type formatting rules.
func buildPrompt(topic string, count int, qtype model.QuestionType, courseContext, additionalContext string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate exactly %d quiz questions about the topic %q.\n", count, topic))
	if courseContext != "" {
		sb.WriteString("COURSE CONTEXT: " + courseContext + "\n")
	}
	if additionalContext != "" {
		sb.WriteString("ADDITIONAL CONTEXT: " + additionalContext + "\n")
	}
	sb.WriteString("\n")

	switch qtype {
	case model.QuestionTypeMixed:
		sb.WriteString("Cycle through the types multiple_choice, true_false and short_answer in that order.\n")
	default:
		sb.WriteString(fmt.Sprintf("Every question must have type %q.\n", qtype))
	}

	sb.WriteString("\nFORMATTING RULES:\n")
	sb.WriteString(fmt.Sprintf("- multiple_choice: a \"prompt\", exactly %d \"options\", a \"correct_option\" that matches one option verbatim, and an \"explanation\".\n", model.MultipleChoiceOptionCount))
	sb.WriteString("- true_false: a \"prompt\" holding the statement, a boolean \"correct_bool\", and an \"explanation\".\n")
	sb.WriteString("- short_answer: a \"prompt\", a \"sample_answer\", a \"keywords\" list of expected terms, and an \"explanation\".\n")
	sb.WriteString("\nRespond ONLY with a JSON array of question objects, each carrying a \"type\" field. No surrounding text.\n")

	return sb.String()
}

// Fallback produces count deterministic template questions. For mixed
// quizzes the kinds cycle multiple_choice, true_false, short_answer by
// index modulo 3. Correct answers are fixed so grading stays well-defined.
func Fallback(topic string, count int, qtype model.QuestionType) []model.QuestionSpec {
	cycle := []model.QuestionType{
		model.QuestionTypeMultipleChoice,
		model.QuestionTypeTrueFalse,
		model.QuestionTypeShortAnswer,
	}

	questions := make([]model.QuestionSpec, count)
	for i := 0; i < count; i++ {
		kind := qtype
		if qtype == model.QuestionTypeMixed {
			kind = cycle[i%len(cycle)]
		}
		switch kind {
		case model.QuestionTypeTrueFalse:
			questions[i] = fallbackTrueFalse(topic, i)
		case model.QuestionTypeShortAnswer:
			questions[i] = fallbackShortAnswer(topic, i)
		default:
			questions[i] = fallbackMultipleChoice(topic, i)
		}
	}
	return questions
}

func fallbackMultipleChoice(topic string, idx int) model.QuestionSpec {
	correct := fmt.Sprintf("It is a fundamental aspect of %s", topic)
	return model.QuestionSpec{
		Type:   model.QuestionTypeMultipleChoice,
		Prompt: fmt.Sprintf("Which statement best describes concept %d of %s?", idx+1, topic),
		Options: []string{
			correct,
			fmt.Sprintf("It is unrelated to %s", topic),
			fmt.Sprintf("It contradicts the principles of %s", topic),
			"None of the above",
		},
		CorrectOption: correct,
		Explanation:   fmt.Sprintf("Concept %d is part of the core material on %s.", idx+1, topic),
	}
}

func fallbackTrueFalse(topic string, idx int) model.QuestionSpec {
	correct := true
	return model.QuestionSpec{
		Type:        model.QuestionTypeTrueFalse,
		Prompt:      fmt.Sprintf("Concept %d is a recognized part of %s.", idx+1, topic),
		CorrectBool: &correct,
		Explanation: fmt.Sprintf("The statement reflects the standard treatment of %s.", topic),
	}
}

func fallbackShortAnswer(topic string, idx int) model.QuestionSpec {
	return model.QuestionSpec{
		Type:         model.QuestionTypeShortAnswer,
		Prompt:       fmt.Sprintf("Briefly explain concept %d of %s in your own words.", idx+1, topic),
		SampleAnswer: fmt.Sprintf("Concept %d is a key element of %s and describes its definition and application.", idx+1, topic),
		Keywords:     []string{strings.ToLower(topic), "definition", "application"},
		Explanation:  fmt.Sprintf("A complete answer names the concept and relates it to %s.", topic),
	}
}
