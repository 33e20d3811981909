package generator

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/rs/zerolog"
)

// fakeProvider returns a canned response or error.
type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func testGenerator(p chatProvider) *Generator {
	return &Generator{
		provider: p,
		timeout:  time.Second,
		log:      zerolog.Nop(),
	}
}

func providerJSON(t *testing.T, questions []model.QuestionSpec) string {
	t.Helper()
	raw, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	return string(raw)
}

func validMC(prompt string) model.QuestionSpec {
	return model.QuestionSpec{
		Type:          model.QuestionTypeMultipleChoice,
		Prompt:        prompt,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: "a",
		Explanation:   "because",
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	first := Fallback("networking", 5, model.QuestionTypeMultipleChoice)
	second := Fallback("networking", 5, model.QuestionTypeMultipleChoice)
	if !reflect.DeepEqual(first, second) {
		t.Error("Fallback produced different output for identical input")
	}
}

func TestFallbackCountAndValidity(t *testing.T) {
	for _, qtype := range []model.QuestionType{
		model.QuestionTypeMultipleChoice,
		model.QuestionTypeTrueFalse,
		model.QuestionTypeShortAnswer,
		model.QuestionTypeMixed,
	} {
		t.Run(string(qtype), func(t *testing.T) {
			questions := Fallback("databases", 7, qtype)
			if len(questions) != 7 {
				t.Fatalf("len = %d, want 7", len(questions))
			}
			for i, q := range questions {
				if err := q.Validate(); err != nil {
					t.Errorf("question %d invalid: %v", i, err)
				}
				if qtype != model.QuestionTypeMixed && q.Type != qtype {
					t.Errorf("question %d type = %q, want %q", i, q.Type, qtype)
				}
			}
		})
	}
}

func TestFallbackMixedCyclesTypes(t *testing.T) {
	questions := Fallback("algorithms", 7, model.QuestionTypeMixed)
	want := []model.QuestionType{
		model.QuestionTypeMultipleChoice,
		model.QuestionTypeTrueFalse,
		model.QuestionTypeShortAnswer,
		model.QuestionTypeMultipleChoice,
		model.QuestionTypeTrueFalse,
		model.QuestionTypeShortAnswer,
		model.QuestionTypeMultipleChoice,
	}
	for i, q := range questions {
		if q.Type != want[i] {
			t.Errorf("question %d type = %q, want %q", i, q.Type, want[i])
		}
	}
}

func TestGenerateWithoutProviderUsesFallback(t *testing.T) {
	g := testGenerator(nil)
	questions := g.Generate(context.Background(), "go", 3, model.QuestionTypeTrueFalse, "", "")
	if !reflect.DeepEqual(questions, Fallback("go", 3, model.QuestionTypeTrueFalse)) {
		t.Error("expected the fallback set when no provider is configured")
	}
}

func TestGenerateUsesProviderResponse(t *testing.T) {
	want := []model.QuestionSpec{validMC("p1"), validMC("p2")}
	p := &fakeProvider{response: providerJSON(t, want)}
	g := testGenerator(p)

	got := g.Generate(context.Background(), "go", 2, model.QuestionTypeMultipleChoice, "", "")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Generate = %+v, want provider questions", got)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestGenerateStripsMarkdownFences(t *testing.T) {
	want := []model.QuestionSpec{validMC("p1")}
	p := &fakeProvider{response: "```json\n" + providerJSON(t, want) + "\n```"}
	g := testGenerator(p)

	got := g.Generate(context.Background(), "go", 1, model.QuestionTypeMultipleChoice, "", "")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Generate = %+v, want fenced provider questions decoded", got)
	}
}

func TestGenerateFallsBackOnProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"provider error", &fakeProvider{err: errors.New("timeout")}},
		{"not json", &fakeProvider{response: "sorry, I cannot help with that"}},
		{"wrong count", &fakeProvider{response: `[]`}},
		{
			"wrong type",
			&fakeProvider{response: func() string {
				q := validMC("p1")
				raw, _ := json.Marshal([]model.QuestionSpec{q})
				return string(raw)
			}()},
		},
		{
			"invalid question",
			&fakeProvider{response: `[{"type":"multiple_choice","prompt":"p","options":["a"],"correct_option":"a"}]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGenerator(tt.provider)
			qtype := model.QuestionTypeTrueFalse
			if tt.name == "invalid question" {
				qtype = model.QuestionTypeMultipleChoice
			}
			got := g.Generate(context.Background(), "go", 1, qtype, "", "")
			want := Fallback("go", 1, qtype)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Generate = %+v, want fallback set", got)
			}
		})
	}
}

func TestGenerateMixedAcceptsAnyValidType(t *testing.T) {
	correct := true
	want := []model.QuestionSpec{
		validMC("p1"),
		{Type: model.QuestionTypeTrueFalse, Prompt: "p2", CorrectBool: &correct},
	}
	p := &fakeProvider{response: providerJSON(t, want)}
	g := testGenerator(p)

	got := g.Generate(context.Background(), "go", 2, model.QuestionTypeMixed, "", "")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Generate = %+v, want mixed provider questions", got)
	}
}
