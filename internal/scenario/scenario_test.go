package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/llm"
	"github.com/logicfirst/tutor/internal/model"
)

func TestSelectFiltersByType(t *testing.T) {
	got := Select(TypeCodeRequest, model.LevelInitialRequest, model.StrictnessModerate)
	if len(got) == 0 {
		t.Fatal("no scenarios selected for code request")
	}
	for _, s := range got {
		if s.Type != TypeCodeRequest {
			t.Errorf("selected scenario %s has type %s", s.ID, s.Type)
		}
	}
}

func TestSelectExactLevelFirst(t *testing.T) {
	got := Select(TypeVagueLogicAttempt, model.LevelBasicExplanation, model.StrictnessModerate)
	if len(got) < 2 {
		t.Fatalf("want at least 2 vague scenarios, got %d", len(got))
	}
	if got[0].ValidationLevel != model.LevelBasicExplanation {
		t.Errorf("first selected scenario at level %s, want exact match first", got[0].ValidationLevel)
	}
}

func TestSelectStrictnessWindow(t *testing.T) {
	// gaming_001 sits at gaming_mode strictness; from lenient with a
	// non-matching level it is out of the +/-1 window.
	got := Select(TypeGamingResponse, model.LevelInitialRequest, model.StrictnessLenient)
	for _, s := range got {
		if s.ID == "gaming_001" {
			t.Error("gaming_001 selected outside strictness window without level match")
		}
	}

	got = Select(TypeGamingResponse, model.LevelGamingDetected, model.StrictnessLenient)
	found := false
	for _, s := range got {
		if s.ID == "gaming_001" {
			found = true
		}
	}
	if !found {
		t.Error("gaming_001 not selected despite exact level match")
	}
}

func TestSelectCap(t *testing.T) {
	for _, typ := range []Type{TypeVagueLogicAttempt, TypeCodeRequest, TypeLogicValidation} {
		got := Select(typ, model.LevelBasicExplanation, model.StrictnessModerate)
		if len(got) > maxSelected {
			t.Errorf("Select(%s) returned %d scenarios, cap is %d", typ, len(got), maxSelected)
		}
	}
}

func TestToneFor(t *testing.T) {
	tests := []struct {
		name       string
		gaming     bool
		approved   bool
		attempts   int
		strictness model.Strictness
		want       model.Tone
	}{
		{"gaming wins", true, false, 0, model.StrictnessLenient, model.ToneStrict},
		{"approval celebrated", false, true, 5, model.StrictnessStrict, model.ToneCelebratory},
		{"third attempt empathetic", false, false, 3, model.StrictnessStrict, model.ToneEmpathetic},
		{"lenient encouraging", false, false, 1, model.StrictnessLenient, model.ToneEncouraging},
		{"strict firm", false, false, 1, model.StrictnessStrict, model.ToneFirmButKind},
		{"very strict strict", false, false, 1, model.StrictnessVeryStrict, model.ToneStrict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToneFor(tt.gaming, tt.approved, tt.attempts, tt.strictness)
			if got != tt.want {
				t.Errorf("ToneFor = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTypeForGaming(t *testing.T) {
	tests := []struct {
		g    model.GamingType
		want Type
	}{
		{model.GamingCopyPaste, TypeCopyPasteDetection},
		{model.GamingVagueRepetition, TypeRepetitiveResponse},
		{model.GamingBypassAttempt, TypeCodeRequest},
		{model.GamingInsufficientEffort, TypeInsufficientDetail},
	}
	for _, tt := range tests {
		if got := TypeForGaming(tt.g); got != tt.want {
			t.Errorf("TypeForGaming(%s) = %s, want %s", tt.g, got, tt.want)
		}
	}
}

func TestCrossQuestions(t *testing.T) {
	problem := model.Problem{Title: "Read numbers", Description: "Read 5 numbers from the user and print them"}
	missing := []elements.RequiredElement{
		elements.ElemDataStructureChoice,
		elements.ElemLoopStructure,
		elements.ElemProcessFlow,
		elements.ElemOutputMethod,
	}

	qs := CrossQuestions(missing, model.StrictnessModerate, problem)
	if len(qs) != 3 {
		t.Fatalf("got %d questions, want 3", len(qs))
	}
	for _, q := range qs {
		if strings.Contains(q, "{data_type}") {
			t.Errorf("unexpanded placeholder in question %q", q)
		}
	}
	if !strings.Contains(qs[0], "numbers") {
		t.Errorf("data kind not contextualized: %q", qs[0])
	}
}

func TestDataKind(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Read 5 numbers and print them", "numbers"},
		{"Count vowels in a word", "strings"},
		{"Greet each name in the list", "names"},
		{"Process the items", "values"},
	}
	for _, tt := range tests {
		p := model.Problem{Description: tt.desc}
		if got := DataKind(p); got != tt.want {
			t.Errorf("DataKind(%q) = %s, want %s", tt.desc, got, tt.want)
		}
	}
}

func TestLibraryNeverContainsCode(t *testing.T) {
	for _, s := range Library() {
		if containsCode(s.Response) {
			t.Errorf("scenario %s response contains code", s.ID)
		}
		for _, f := range s.FollowUps {
			if containsCode(f) {
				t.Errorf("scenario %s follow-up contains code", s.ID)
			}
		}
	}
}

func TestCrossQuestionBankNeverContainsCode(t *testing.T) {
	for elem, templates := range crossQuestionTemplates {
		for _, q := range templates {
			if containsCode(q) {
				t.Errorf("cross-question for %s contains code: %q", elem, q)
			}
		}
	}
}

type fakeGen struct {
	out string
	err error
}

func (f *fakeGen) Complete(_ context.Context, _ llm.Request) (string, error) {
	return f.out, f.err
}

func TestRespondUsesGenerator(t *testing.T) {
	r := NewResponder(&fakeGen{out: "Tell me more about your loop."})
	got := r.Respond(context.Background(), Situation{
		Type:       TypeLogicValidation,
		Level:      model.LevelBasicExplanation,
		Strictness: model.StrictnessModerate,
		Tone:       model.ToneEncouraging,
	})
	if got != "Tell me more about your loop." {
		t.Errorf("Respond = %q", got)
	}
}

func TestRespondFallsBackOnError(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))

	r := NewResponder(&fakeGen{err: &llm.Error{Kind: llm.ErrConnectivity, Err: errors.New("down")}})
	got := r.Respond(ctx, Situation{Tone: model.ToneStrict})
	want := i18n.T(ctx, "fallback.strict")
	if got != want {
		t.Errorf("Respond fallback = %q, want %q", got, want)
	}
}

func TestRespondRejectsGeneratedCode(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))

	r := NewResponder(&fakeGen{out: "Here you go:\n```python\nprint(1)\n```"})
	got := r.Respond(ctx, Situation{Tone: model.ToneFirmButKind})
	if strings.Contains(got, "```") {
		t.Error("code-bearing generation was not replaced by fallback")
	}
}
