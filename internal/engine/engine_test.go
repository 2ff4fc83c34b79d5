package engine

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/logicfirst/tutor/internal/codeval"
	"github.com/logicfirst/tutor/internal/gaming"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/logicval"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
	"github.com/logicfirst/tutor/internal/state"
	"github.com/logicfirst/tutor/internal/store"
	"github.com/logicfirst/tutor/internal/understanding"
)

const approachText = "First I will make an empty list, then loop five times asking the user for input, " +
	"convert each one to an int, append it to the list, and finally print the list"

const submittedCode = `numbers = []
for i in range(5):
    value = int(input())
    numbers.append(value)
print(numbers)
`

const explanationText = "I make an empty list to hold the numbers because I need them all " +
	"at the end. The for loop with range repeats five times, counting each pass. Each time I ask " +
	"for input from the user, then I convert the text with int so that it becomes a real number, " +
	"I append it to the list, I store it in the value variable first, and finally I print the whole list."

func newTestEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en"))

	st, err := store.New(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if _, err := st.ImportProblems([]model.ProblemImport{
		{
			AssignmentID: "lists-101",
			Number:       1,
			Title:        "Create a List with User Input",
			Description:  "Prompt the user to enter 5 numbers one by one, append each to a list, and print the final list.",
			SampleInput:  "3\n7\n2\n9\n5",
			SampleOutput: "[3, 7, 2, 9, 5]",
		},
		{
			AssignmentID: "lists-101",
			Number:       2,
			Title:        "Sum the List",
			Description:  "Read 5 numbers into a list and print their sum.",
			SampleInput:  "1\n2\n3\n4\n5",
			SampleOutput: "15",
		},
	}); err != nil {
		t.Fatalf("ImportProblems: %v", err)
	}

	states, err := state.New("memory")
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	t.Cleanup(func() { states.Close() })

	responder := scenario.NewResponder(nil)
	eng := New(Config{
		Store:         st,
		States:        states,
		Logic:         logicval.NewValidator(gaming.NewDetector(), logicval.NewAnalyzer(nil), responder),
		Code:          codeval.NewValidator(responder),
		Understanding: understanding.NewVerifier(responder),
		Responder:     responder,
	})
	return eng, ctx
}

func startSession(t *testing.T, eng *Engine, ctx context.Context) *model.Session {
	t.Helper()
	res, err := eng.StartSession(ctx, "alice", "lists-101")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return res.Session
}

func turn(t *testing.T, eng *Engine, ctx context.Context, sessionID, text string) *model.TurnResult {
	t.Helper()
	res, err := eng.ProcessTurn(ctx, sessionID, text)
	if err != nil {
		t.Fatalf("ProcessTurn(%q): %v", text, err)
	}
	return res
}

func TestStartSessionGreets(t *testing.T) {
	eng, ctx := newTestEngine(t)

	res, err := eng.StartSession(ctx, "alice", "lists-101")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if res.Resumed {
		t.Error("fresh start reported as resumed")
	}
	if res.Session.State != model.StateInitialGreeting {
		t.Errorf("State = %s, want initial_greeting", res.Session.State)
	}
	if !strings.Contains(res.Message, "tutor") {
		t.Errorf("greeting missing: %q", res.Message)
	}
}

func TestStartSessionResumes(t *testing.T) {
	eng, ctx := newTestEngine(t)
	first := startSession(t, eng, ctx)

	res, err := eng.StartSession(ctx, "alice", "lists-101")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if !res.Resumed {
		t.Fatal("second start did not resume")
	}
	if res.Session.ID != first.ID {
		t.Errorf("resumed session %s, want %s", res.Session.ID, first.ID)
	}
	if !strings.Contains(res.Message, "Welcome back") {
		t.Errorf("resume message missing: %q", res.Message)
	}
}

func TestStartSessionIdempotentUnderConcurrency(t *testing.T) {
	eng, ctx := newTestEngine(t)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.StartSession(ctx, "alice", "lists-101")
			if err != nil {
				t.Errorf("StartSession: %v", err)
				return
			}
			ids[i] = res.Session.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("double-submitted start produced two sessions: %s vs %s", ids[0], ids[i])
		}
	}
	if eng.creationLocks.size() != 0 {
		t.Errorf("creation locks not collected: %d entries", eng.creationLocks.size())
	}
}

func TestGateBlocksCodeBeforeApproval(t *testing.T) {
	eng, ctx := newTestEngine(t)
	sess := startSession(t, eng, ctx)

	turn(t, eng, ctx, sess.ID, "ready")

	res := turn(t, eng, ctx, sess.ID, "x = input(); y = []; y.append(x)")
	if res.State != model.StateAwaitingApproach {
		t.Fatalf("State = %s, want awaiting_approach", res.State)
	}
	if res.Mode != model.ModeGamingIntervention {
		t.Errorf("Mode = %s, want gaming_intervention", res.Mode)
	}
	if !strings.Contains(res.Response, "plan") {
		t.Errorf("gate message missing: %q", res.Response)
	}

	// Two more offenses stiffen the wording.
	turn(t, eng, ctx, sess.ID, "y = [1]")
	res = turn(t, eng, ctx, sess.ID, "print(y)")
	if !strings.Contains(res.Response, "not skipping") {
		t.Errorf("third offense not stiffened: %q", res.Response)
	}
}

func TestFullTutoringFlow(t *testing.T) {
	eng, ctx := newTestEngine(t)
	sess := startSession(t, eng, ctx)

	res := turn(t, eng, ctx, sess.ID, "ready")
	if res.State != model.StateProblemPresented {
		t.Fatalf("after ready: State = %s, want problem_presented", res.State)
	}
	if !strings.Contains(res.Response, "Here is the problem:") ||
		!strings.Contains(res.Response, "How are you thinking to solve this question?") {
		t.Fatalf("presentation malformed: %q", res.Response)
	}

	res = turn(t, eng, ctx, sess.ID, approachText)
	if res.State != model.StateReadyForCoding {
		t.Fatalf("after approach: State = %s, want ready_for_coding", res.State)
	}

	res = turn(t, eng, ctx, sess.ID, submittedCode)
	if res.State != model.StateCodeUnderstanding {
		t.Fatalf("after code: State = %s, want code_understanding (got %q)", res.State, res.Response)
	}
	if len(res.Questions) == 0 {
		t.Error("expected understanding questions")
	}

	res = turn(t, eng, ctx, sess.ID, explanationText)
	if res.State != model.StateProblemCompleted {
		t.Fatalf("after explanation: State = %s, want problem_completed", res.State)
	}
	if !res.Completed {
		t.Error("Completed = false, want true")
	}
	if !strings.Contains(res.Response, "Problem complete!") {
		t.Errorf("completion message missing: %q", res.Response)
	}

	// Completion is durable.
	done, err := eng.store.IsCompleted("alice", "lists-101", 1)
	if err != nil {
		t.Fatalf("IsCompleted: %v", err)
	}
	if !done {
		t.Error("problem 1 not marked completed")
	}

	// "next" moves to problem 2.
	res = turn(t, eng, ctx, sess.ID, "next")
	if res.State != model.StateProblemPresented {
		t.Fatalf("after next: State = %s, want problem_presented", res.State)
	}
	if !strings.Contains(res.Response, "Sum the List") {
		t.Errorf("expected problem 2, got %q", res.Response)
	}
}

func TestStuckStudentGetsEncouragement(t *testing.T) {
	eng, ctx := newTestEngine(t)
	sess := startSession(t, eng, ctx)
	turn(t, eng, ctx, sess.ID, "ready")

	res := turn(t, eng, ctx, sess.ID, "I'm stuck, I don't understand this at all")
	if res.State != model.StateAwaitingApproach {
		t.Errorf("State = %s, want awaiting_approach", res.State)
	}
	if res.Mode != model.ModeEncouragement {
		t.Errorf("Mode = %s, want encouragement", res.Mode)
	}
	if res.Tone != model.ToneEmpathetic {
		t.Errorf("Tone = %s, want empathetic", res.Tone)
	}
	if !strings.Contains(res.Response, "smallest") {
		t.Errorf("encouragement missing: %q", res.Response)
	}
}

func TestProblemStatementRequest(t *testing.T) {
	eng, ctx := newTestEngine(t)
	sess := startSession(t, eng, ctx)
	turn(t, eng, ctx, sess.ID, "ready")

	res := turn(t, eng, ctx, sess.ID, "can you repeat the problem statement?")
	if res.State != model.StateProblemPresented {
		t.Errorf("State = %s, want problem_presented", res.State)
	}
	if !strings.Contains(res.Response, "Here is the problem:") {
		t.Errorf("expected re-presentation, got %q", res.Response)
	}
}

func TestProcessTurnUnknownSession(t *testing.T) {
	eng, ctx := newTestEngine(t)

	if _, err := eng.ProcessTurn(ctx, "no-such-session", "hello"); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind InputKind
	}{
		{"bare code", "x = input(); y = []; y.append(x)", KindCode},
		{"full program", submittedCode, KindCode},
		{"ready", "ok I'm ready, let's go", KindReady},
		{"stuck", "I'm stuck and confused, help", KindStuck},
		{"question", "how do I read the input?", KindQuestion},
		{"navigation", "done, next problem please", KindNavigation},
		{"social", "hi, thanks!", KindSocial},
		{"prose approach", approachText, KindGeneral},
		{"empty", "   ", KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Kind != tt.kind {
				t.Errorf("Classify(%q).Kind = %s (%v), want %s", tt.text, got.Kind, got.Indicators, tt.kind)
			}
		})
	}
}

func TestDetectState(t *testing.T) {
	vs := model.NewValidationState("s1", 1)
	tests := []struct {
		name    string
		text    string
		current model.StudentState
		want    model.StudentState
	}{
		{"ready from greeting", "ready", model.StateInitialGreeting, model.StateReadyToStart},
		{"prose from presented", "I will loop over the input", model.StateProblemPresented, model.StateLogicValidation},
		{"code goes to submission", "x = int(input())", model.StateReadyForCoding, model.StateCodeSubmitted},
		{"code during understanding stays", "print(numbers)", model.StateCodeUnderstanding, model.StateCodeUnderstanding},
		{"stuck overrides", "I'm stuck", model.StateLogicValidation, model.StateStuckNeedsHelp},
		{"next after completion", "next", model.StateProblemCompleted, model.StateReadyToStart},
		{"next mid-flow ignored", "next", model.StateLogicValidation, model.StateLogicValidation},
		{"statement request", "show me the problem again", model.StateLogicValidation, model.StateProblemPresented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectState(Classify(tt.text), tt.text, tt.current, 5, vs)
			if got != tt.want {
				t.Errorf("detectState(%q, %s) = %s, want %s", tt.text, tt.current, got, tt.want)
			}
		})
	}
}

func TestKeyedMutexCollectsIdleEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("a")
	if km.size() != 1 {
		t.Fatalf("size = %d, want 1", km.size())
	}
	unlock()
	if km.size() != 0 {
		t.Fatalf("size = %d after unlock, want 0", km.size())
	}

	// Contended key survives until the last holder releases.
	var wg sync.WaitGroup
	release := km.Lock("b")
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := km.Lock("b")
			u()
		}()
	}
	release()
	wg.Wait()
	if km.size() != 0 {
		t.Fatalf("size = %d after all released, want 0", km.size())
	}
}
