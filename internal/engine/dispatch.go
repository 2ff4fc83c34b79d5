package engine

import (
	"context"

	"github.com/logicfirst/tutor/internal/codeval"
	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
)

// turnContext carries everything a handler needs for one student turn.
type turnContext struct {
	sess    *model.Session
	vs      *model.ValidationState
	text    string
	cls     Classification
	history []model.Turn
	problem model.Problem
}

// outcome is what a handler produces.
type outcome struct {
	state          model.StudentState
	mode           model.TutoringMode
	tone           model.Tone
	response       string
	questions      []string
	problemDone    bool
	assignmentDone bool
}

type handlerFunc func(context.Context, *turnContext) outcome

type dispatchKey struct {
	state model.StudentState
	mode  model.TutoringMode
}

// dispatch detects the candidate state, derives the mode, and runs the handler
// registered for that pair. The gate comes first: code with no approved logic
// never reaches a handler.
func (e *Engine) dispatch(ctx context.Context, tc *turnContext) outcome {
	if tc.cls.Kind == KindCode && tc.vs.ApprovedLogic == "" {
		return e.gateViolation(ctx, tc)
	}

	next := detectState(tc.cls, tc.text, tc.sess.State, len(tc.history), tc.vs)
	mode := modeFor(next)

	if h, ok := e.routes[dispatchKey{next, mode}]; ok {
		return h(ctx, tc)
	}
	return e.handleGeneral(ctx, tc, next, mode)
}

// buildRoutes is the explicit (state, mode) dispatch table.
func (e *Engine) buildRoutes() map[dispatchKey]handlerFunc {
	return map[dispatchKey]handlerFunc{
		{model.StateInitialGreeting, model.ModeGreeting}:             e.handleGreeting,
		{model.StateReadyToStart, model.ModeProblemPresentation}:     e.handlePresentProblem,
		{model.StateProblemPresented, model.ModeProblemPresentation}: e.handlePresentProblem,
		{model.StateAwaitingApproach, model.ModeLogicValidation}:     e.handleLogic,
		{model.StateLogicValidation, model.ModeLogicValidation}:      e.handleLogic,
		{model.StateCodeSubmitted, model.ModeCodeValidation}:         e.handleCode,
		{model.StateCodeReview, model.ModeCodeValidation}:            e.handleCode,
		{model.StateCodeAlignmentCheck, model.ModeCodeValidation}:    e.handleAlignmentAnswer,
		{model.StateReadyForCoding, model.ModeCodeValidation}:        e.handleAwaitingCode,
		{model.StateGuidedCodeDiscovery, model.ModeGuidedDiscovery}:  e.handleDiscovery,
		{model.StateCodeUnderstanding, model.ModeUnderstandingCheck}: e.handleUnderstanding,
		{model.StateStuckNeedsHelp, model.ModeEncouragement}:         e.handleStuck,
		{model.StateProblemCompleted, model.ModeEncouragement}:       e.handleCompleted,
	}
}

// detectState decides where the student is after this input. Code always
// routes to the code path (the gate already passed); explicit stuck or ready
// signals override the default flow; otherwise prose advances along the
// current stage.
func detectState(cls Classification, text string, current model.StudentState, historyLen int, vs *model.ValidationState) model.StudentState {
	if wantsProblemStatement(text) && current != model.StateInitialGreeting {
		return model.StateProblemPresented
	}

	switch cls.Kind {
	case KindCode:
		if current == model.StateCodeUnderstanding {
			// Re-pasting code is not an explanation; stay and ask again.
			return model.StateCodeUnderstanding
		}
		return model.StateCodeSubmitted
	case KindStuck:
		return model.StateStuckNeedsHelp
	case KindReady:
		switch current {
		case model.StateInitialGreeting, model.StateReadyToStart, model.StateProblemCompleted:
			return model.StateReadyToStart
		}
	case KindNavigation:
		if current == model.StateProblemCompleted {
			return model.StateReadyToStart
		}
	case KindQuestion:
		if current == model.StateProblemPresented {
			return model.StateAwaitingApproach
		}
	case KindSocial:
		if current == model.StateInitialGreeting && historyLen <= 3 {
			return model.StateInitialGreeting
		}
	}

	// Default progression by stage.
	switch current {
	case model.StateInitialGreeting:
		return model.StateInitialGreeting
	case model.StateReadyToStart:
		return model.StateReadyToStart
	case model.StateProblemPresented, model.StateAwaitingApproach, model.StateLogicValidation:
		return model.StateLogicValidation
	case model.StateLogicApproved, model.StateReadyForCoding:
		return model.StateReadyForCoding
	case model.StateGuidedCodeDiscovery, model.StateCodeSubmitted, model.StateCodeAlignmentCheck:
		return model.StateGuidedCodeDiscovery
	case model.StateCodeUnderstanding, model.StateCodeReview:
		return model.StateCodeUnderstanding
	case model.StateProblemCompleted:
		return model.StateProblemCompleted
	default:
		return current
	}
}

// modeFor maps a student state to the tutoring mode that handles it.
func modeFor(s model.StudentState) model.TutoringMode {
	switch s {
	case model.StateInitialGreeting:
		return model.ModeGreeting
	case model.StateReadyToStart, model.StateProblemPresented:
		return model.ModeProblemPresentation
	case model.StateAwaitingApproach, model.StateLogicValidation:
		return model.ModeLogicValidation
	case model.StateCodeSubmitted, model.StateCodeReview, model.StateCodeAlignmentCheck, model.StateReadyForCoding:
		return model.ModeCodeValidation
	case model.StateGuidedCodeDiscovery:
		return model.ModeGuidedDiscovery
	case model.StateCodeUnderstanding:
		return model.ModeUnderstandingCheck
	case model.StateStuckNeedsHelp, model.StateProblemCompleted:
		return model.ModeEncouragement
	default:
		return model.ModeLogicValidation
	}
}

// gateViolation forces the student back to explaining their approach when
// code arrives before any logic approval. Wording stiffens after repeats.
func (e *Engine) gateViolation(ctx context.Context, tc *turnContext) outcome {
	tc.vs.GateOffenses++
	msgID := "gate.first"
	tone := model.ToneFirmButKind
	if tc.vs.GateOffenses >= 3 {
		msgID = "gate.repeated"
		tone = model.ToneStrict
	}
	return outcome{
		state:    model.StateAwaitingApproach,
		mode:     model.ModeGamingIntervention,
		tone:     tone,
		response: i18n.T(ctx, msgID),
	}
}

func (e *Engine) handleGreeting(ctx context.Context, tc *turnContext) outcome {
	return outcome{
		state:    model.StateInitialGreeting,
		mode:     model.ModeGreeting,
		tone:     model.ToneEncouraging,
		response: i18n.T(ctx, "greeting.initial"),
	}
}

func (e *Engine) handlePresentProblem(ctx context.Context, tc *turnContext) outcome {
	// Presenting problem N starts (or restarts) its validation record.
	if tc.vs.ProblemNumber != tc.problem.Number {
		tc.vs = model.NewValidationState(tc.sess.ID, tc.problem.Number)
	}
	return outcome{
		state:    model.StateProblemPresented,
		mode:     model.ModeProblemPresentation,
		tone:     model.ToneEncouraging,
		response: presentProblem(tc.problem),
	}
}

func (e *Engine) handleLogic(ctx context.Context, tc *turnContext) outcome {
	res := e.logic.Validate(ctx, tc.vs, tc.text, tc.history, tc.problem)
	tone := scenario.ToneFor(res.Gaming.Flagged, res.Approved, tc.vs.Attempts, res.Strictness)

	switch {
	case res.Gaming.Flagged:
		return outcome{
			state:    model.StateLogicValidation,
			mode:     model.ModeGamingIntervention,
			tone:     tone,
			response: res.Response,
		}
	case res.Approved:
		return outcome{
			state:    model.StateReadyForCoding,
			mode:     model.ModeLogicValidation,
			tone:     tone,
			response: res.Response,
		}
	default:
		return outcome{
			state:     model.StateLogicValidation,
			mode:      model.ModeLogicValidation,
			tone:      tone,
			response:  res.Response,
			questions: res.CrossQuestions,
		}
	}
}

func (e *Engine) handleCode(ctx context.Context, tc *turnContext) outcome {
	res := e.code.Validate(ctx, tc.vs, tc.text, tc.history, tc.problem)

	switch res.Phase {
	case model.PhaseCodeGamingDetected:
		return outcome{
			state:    model.StateReadyForCoding,
			mode:     model.ModeGamingIntervention,
			tone:     model.ToneStrict,
			response: res.Response,
		}
	case model.PhaseCodeUnderstanding:
		return outcome{
			state:     model.StateCodeUnderstanding,
			mode:      model.ModeCodeValidation,
			tone:      model.ToneEncouraging,
			response:  res.Response,
			questions: res.Questions,
		}
	case model.PhaseLogicAlignmentCheck:
		return outcome{
			state:     model.StateCodeAlignmentCheck,
			mode:      model.ModeCodeValidation,
			tone:      model.ToneFirmButKind,
			response:  res.Response,
			questions: res.Questions,
		}
	default:
		out := outcome{
			state:     model.StateGuidedCodeDiscovery,
			mode:      model.ModeCodeValidation,
			tone:      model.ToneEncouraging,
			response:  res.Response,
			questions: res.Questions,
		}
		// Known beginner mistakes get one targeted hint on top of the
		// validator's questions.
		if res.Parseable {
			if issues := analyzeCodeIssues(tc.text, tc.problem); len(issues) > 0 {
				out.response = hintForIssue(issues[0]) + "\n\n" + out.response
			}
		}
		return out
	}
}

// handleAlignmentAnswer takes the student's prose answer to an alignment
// question and sends them back to adjust the code.
func (e *Engine) handleAlignmentAnswer(ctx context.Context, tc *turnContext) outcome {
	reply := e.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeCrossQuestioning,
		Level:        tc.vs.Level,
		Strictness:   tc.vs.Strictness,
		Tone:         model.ToneFirmButKind,
		Problem:      tc.problem,
		StudentInput: tc.text,
		History:      tc.history,
		Guidance:     "The student answered a question about how their code maps to their approved plan. Acknowledge the answer and ask them to update and resubmit their code.",
	})
	return outcome{
		state:    model.StateReadyForCoding,
		mode:     model.ModeCodeValidation,
		tone:     model.ToneFirmButKind,
		response: reply,
	}
}

func (e *Engine) handleAwaitingCode(ctx context.Context, tc *turnContext) outcome {
	reply := e.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeProgressValidation,
		Level:        tc.vs.Level,
		Strictness:   tc.vs.Strictness,
		Tone:         model.ToneEncouraging,
		Problem:      tc.problem,
		StudentInput: tc.text,
		History:      tc.history,
		Guidance:     "The plan is approved. Encourage the student to write the code themselves now, without giving any code.",
	})
	return outcome{
		state:    model.StateReadyForCoding,
		mode:     model.ModeCodeValidation,
		tone:     model.ToneEncouraging,
		response: reply,
	}
}

func (e *Engine) handleDiscovery(ctx context.Context, tc *turnContext) outcome {
	question := codeval.DiscoveryQuestion(firstMissingElement(tc.vs))
	reply := e.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeCrossQuestioning,
		Level:        tc.vs.Level,
		Strictness:   tc.vs.Strictness,
		Tone:         model.ToneEncouraging,
		Problem:      tc.problem,
		StudentInput: tc.text,
		History:      tc.history,
		Guidance:     "Guide the student toward writing the next piece of code themselves. Weave in this question: " + question,
	})
	return outcome{
		state:     model.StateGuidedCodeDiscovery,
		mode:      model.ModeGuidedDiscovery,
		tone:      model.ToneEncouraging,
		response:  reply,
		questions: []string{question},
	}
}

func firstMissingElement(vs *model.ValidationState) string {
	if len(vs.ApprovedElements) > 0 {
		return vs.ApprovedElements[0]
	}
	return ""
}

func (e *Engine) handleUnderstanding(ctx context.Context, tc *turnContext) outcome {
	code := lastCodeSubmission(tc.history)
	res := e.verifier.Verify(ctx, tc.vs, tc.text, code, tc.history, tc.problem)

	if !res.Verified {
		return outcome{
			state:     model.StateCodeUnderstanding,
			mode:      model.ModeUnderstandingCheck,
			tone:      model.ToneFirmButKind,
			response:  res.Response,
			questions: res.Questions,
		}
	}

	// Problem done: record completion and either advance or finish.
	if err := e.store.MarkCompleted(&model.Completion{
		UserID:        tc.sess.UserID,
		AssignmentID:  tc.sess.AssignmentID,
		ProblemNumber: tc.problem.Number,
		SessionID:     tc.sess.ID,
	}); err != nil {
		e.logger.Warn("mark completed failed", "session", tc.sess.ID, "error", err)
	}
	if err := e.states.Delete(ctx, tc.sess.ID, tc.problem.Number); err != nil {
		e.logger.Warn("state delete failed", "session", tc.sess.ID, "error", err)
	}

	problems, err := e.store.ListProblems(tc.sess.AssignmentID)
	if err != nil {
		e.logger.Warn("list problems failed", "error", err)
	}
	next, done := e.nextProblemNumber(tc.sess.UserID, tc.sess.AssignmentID, problems)

	msg := res.Response
	if msg != "" {
		msg += "\n\n"
	}
	msg += i18n.T(ctx, "completed.problem")

	if done {
		return outcome{
			state:          model.StateProblemCompleted,
			mode:           model.ModeEncouragement,
			tone:           model.ToneCelebratory,
			response:       msg + "\n\n" + i18n.T(ctx, "completed.assignment"),
			problemDone:    true,
			assignmentDone: true,
		}
	}

	tc.sess.ProblemNumber = next
	remaining := 0
	for _, p := range problems {
		if p.Number >= next {
			remaining++
		}
	}
	return outcome{
		state:       model.StateProblemCompleted,
		mode:        model.ModeEncouragement,
		tone:        model.ToneCelebratory,
		response:    msg + "\n\n" + i18n.Tp(ctx, "problems.remaining", remaining),
		problemDone: true,
	}
}

func (e *Engine) handleStuck(ctx context.Context, tc *turnContext) outcome {
	// Return the student to wherever they were stuck from.
	back := model.StateAwaitingApproach
	if tc.vs.ApprovedLogic != "" {
		back = model.StateGuidedCodeDiscovery
	}
	reply := e.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeVagueLogicAttempt,
		Level:        tc.vs.Level,
		Strictness:   tc.vs.Strictness,
		Tone:         model.ToneEmpathetic,
		Problem:      tc.problem,
		StudentInput: tc.text,
		History:      tc.history,
		Guidance:     "The student is stuck. Shrink the problem to its smallest version (one value instead of many) and ask how they would handle just that.",
	})
	return outcome{
		state:    back,
		mode:     model.ModeEncouragement,
		tone:     model.ToneEmpathetic,
		response: i18n.T(ctx, "stuck.encourage") + "\n\n" + reply,
	}
}

func (e *Engine) handleCompleted(ctx context.Context, tc *turnContext) outcome {
	return outcome{
		state:    model.StateProblemCompleted,
		mode:     model.ModeEncouragement,
		tone:     model.ToneCelebratory,
		response: i18n.T(ctx, "greeting.ready_prompt"),
	}
}

// handleGeneral covers (state, mode) pairs outside the table.
func (e *Engine) handleGeneral(ctx context.Context, tc *turnContext, next model.StudentState, mode model.TutoringMode) outcome {
	reply := e.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeLogicValidation,
		Level:        tc.vs.Level,
		Strictness:   tc.vs.Strictness,
		Tone:         model.ToneEncouraging,
		Problem:      tc.problem,
		StudentInput: tc.text,
		History:      tc.history,
	})
	return outcome{
		state:    next,
		mode:     mode,
		tone:     model.ToneEncouraging,
		response: reply,
	}
}

// lastCodeSubmission finds the most recent student turn that looks like code.
func lastCodeSubmission(history []model.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t.Role != model.RoleStudent {
			continue
		}
		if Classify(t.Content).Kind == KindCode {
			return t.Content
		}
	}
	return ""
}
