package codeval

import (
	"context"
	"strings"
	"testing"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
)

var testProblem = model.Problem{
	Number:      1,
	Title:       "Read five numbers",
	Description: "Read 5 numbers from the user and print them",
}

const approvedPlan = "I will make a list, use a for loop to take input 5 times, convert each to int, append to the list, then print them"

func newTestValidator(t *testing.T) (*Validator, context.Context, *model.ValidationState) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))

	vs := model.NewValidationState("s1", 1)
	vs.Level = model.LevelLogicApproved
	vs.ApprovedLogic = approvedPlan
	for _, tag := range elements.FromLogic(approvedPlan) {
		vs.ApprovedElements = append(vs.ApprovedElements, string(tag))
	}
	return NewValidator(scenario.NewResponder(nil)), ctx, vs
}

const alignedCode = `numbers = []
for i in range(5):
    value = int(input())
    numbers.append(value)
print(numbers)
`

func TestValidateFullAlignment(t *testing.T) {
	v, ctx, vs := newTestValidator(t)

	got := v.Validate(ctx, vs, alignedCode, nil, testProblem)
	if got.AlignmentScore != 1.0 {
		t.Errorf("AlignmentScore = %.2f, want 1.0 (matched %v, missing %v)",
			got.AlignmentScore, got.MatchedElements, got.MissingElements)
	}
	if got.Phase != model.PhaseCodeUnderstanding {
		t.Errorf("Phase = %s, want code_understanding", got.Phase)
	}
	if len(got.ExtraElements) != 0 {
		t.Errorf("ExtraElements = %v, want none", got.ExtraElements)
	}
	if len(got.Questions) == 0 {
		t.Error("no understanding-transition question")
	}
}

func TestValidatePartialAlignment(t *testing.T) {
	v, ctx, vs := newTestValidator(t)
	// Conversion and append steps from the plan are absent.
	code := "numbers = []\nfor i in range(5):\n    value = input()\nprint(numbers)\n"

	got := v.Validate(ctx, vs, code, nil, testProblem)
	if got.AlignmentScore < 0.5 || got.AlignmentScore >= 0.8 {
		t.Fatalf("AlignmentScore = %.2f, want partial range", got.AlignmentScore)
	}
	if got.Phase != model.PhaseLogicAlignmentCheck {
		t.Errorf("Phase = %s, want logic_alignment_check", got.Phase)
	}
	if vs.AlignmentAsked != 1 {
		t.Errorf("AlignmentAsked = %d, want 1", vs.AlignmentAsked)
	}
	if len(got.Questions) == 0 || len(got.Questions) > 2 {
		t.Errorf("got %d alignment questions, want 1-2", len(got.Questions))
	}
	for _, m := range got.MissingElements {
		if m != "type_conversion" && m != "list_append" {
			t.Errorf("unexpected missing element %s", m)
		}
	}
}

func TestValidateAlignmentRoundsExhausted(t *testing.T) {
	v, ctx, vs := newTestValidator(t)
	code := "numbers = []\nfor i in range(5):\n    value = input()\nprint(numbers)\n"

	v.Validate(ctx, vs, code, nil, testProblem)
	v.Validate(ctx, vs, code, nil, testProblem)
	if vs.AlignmentAsked != 2 {
		t.Fatalf("AlignmentAsked = %d, want 2", vs.AlignmentAsked)
	}

	got := v.Validate(ctx, vs, code, nil, testProblem)
	if got.Phase != model.PhaseGuidedDiscovery {
		t.Errorf("Phase = %s, want guided_discovery after exhausted alignment rounds", got.Phase)
	}
	if vs.AlignmentAsked != 0 {
		t.Errorf("AlignmentAsked = %d, want reset", vs.AlignmentAsked)
	}
}

func TestValidateMisalignedRestartsDiscovery(t *testing.T) {
	v, ctx, vs := newTestValidator(t)

	got := v.Validate(ctx, vs, "print('hello')\n", nil, testProblem)
	if got.AlignmentScore >= 0.5 {
		t.Fatalf("AlignmentScore = %.2f, want < 0.5", got.AlignmentScore)
	}
	if got.Phase != model.PhaseGuidedDiscovery {
		t.Errorf("Phase = %s, want guided_discovery", got.Phase)
	}
	if len(got.Questions) == 0 {
		t.Error("no restart questions")
	}
	if !strings.Contains(got.Questions[0], "plan") {
		t.Errorf("restart question should point back to the plan: %q", got.Questions[0])
	}
}

func TestValidateSyntaxError(t *testing.T) {
	v, ctx, vs := newTestValidator(t)

	got := v.Validate(ctx, vs, "for i in range(5)\n    print(i)\n", nil, testProblem)
	if got.Parseable {
		t.Fatal("broken code reported parseable")
	}
	if got.SyntaxIssue != model.SyntaxMissingColon {
		t.Errorf("SyntaxIssue = %s, want missing_colon", got.SyntaxIssue)
	}
	if got.Phase != model.PhaseCodeSubmitted {
		t.Errorf("Phase = %s, want code_submitted for resubmission", got.Phase)
	}
	if len(got.Questions) == 0 {
		t.Error("no debugging questions")
	}
}

func TestValidateAttributionGaming(t *testing.T) {
	v, ctx, vs := newTestValidator(t)
	code := "# copied from chatgpt\n" + alignedCode

	got := v.Validate(ctx, vs, code, nil, testProblem)
	if !got.Gaming.Flagged {
		t.Fatal("attribution comment not flagged")
	}
	if got.Gaming.Type != model.GamingCopyPaste {
		t.Errorf("Gaming.Type = %s, want copy_paste", got.Gaming.Type)
	}
	if got.Phase != model.PhaseCodeGamingDetected {
		t.Errorf("Phase = %s, want code_gaming_detected", got.Phase)
	}
	if vs.GamingStrikes != 1 {
		t.Errorf("GamingStrikes = %d, want 1", vs.GamingStrikes)
	}
}

func TestValidateAdvancedConstructGaming(t *testing.T) {
	v, ctx, vs := newTestValidator(t)
	code := `nums = [int(x) for x in data]
squares = [n * n for n in nums]
f = lambda a, b: a + b
print(squares)
`
	got := v.Validate(ctx, vs, code, nil, testProblem)
	if !got.Gaming.Flagged {
		t.Fatalf("advanced-construct pile not flagged (constructs in code: comprehensions and lambda)")
	}
	if got.Phase != model.PhaseCodeGamingDetected {
		t.Errorf("Phase = %s, want code_gaming_detected", got.Phase)
	}
}

func TestQuestionBanksNeverContainCode(t *testing.T) {
	codeMarkers := []string{"```", "def ", "print(", "input(", ".append(", "int(", "range("}
	check := func(origin, q string) {
		t.Helper()
		for _, m := range codeMarkers {
			if strings.Contains(q, m) {
				t.Errorf("%s question contains code marker %q: %q", origin, m, q)
			}
		}
	}
	for issue, qs := range debugQuestionBank {
		for _, q := range qs {
			check("debug/"+string(issue), q)
		}
	}
	for tag, q := range alignmentQuestionBank {
		check("alignment/"+string(tag), q)
	}
	for tag, q := range discoveryQuestionBank {
		check("discovery/"+string(tag), q)
	}
}
