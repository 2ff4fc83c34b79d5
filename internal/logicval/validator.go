package logicval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/gaming"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
)

const approveConfidence = 0.8

// Validator runs the full logic-validation protocol for one student turn:
// gaming check first, then content analysis, strictness escalation and level
// transition, then the tutor response with targeted cross-questions.
type Validator struct {
	detector  *gaming.Detector
	analyzer  *Analyzer
	responder *scenario.Responder
}

// NewValidator wires the validator from its parts.
func NewValidator(detector *gaming.Detector, analyzer *Analyzer, responder *scenario.Responder) *Validator {
	return &Validator{detector: detector, analyzer: analyzer, responder: responder}
}

// Validate processes one explanation attempt, mutating vs in place. Strictness
// only ever moves up, one step per unconvincing attempt; approval resets it.
func (v *Validator) Validate(ctx context.Context, vs *model.ValidationState, text string, history []model.Turn, problem model.Problem) model.LogicValidationResult {
	det := v.detector.Detect(text, history)
	if det.Flagged {
		return v.handleGaming(ctx, vs, det, text, history, problem)
	}

	analysis := v.analyzer.Analyze(ctx, text, vs.Strictness, problem)
	vs.Attempts++

	approved := analysis.Confidence >= approveConfidence && analysis.Recommendation == model.RecommendApprove
	if approved {
		vs.Level = model.LevelLogicApproved
		vs.Strictness = model.StrictnessLenient
		vs.ApprovedLogic = text
		vs.ApprovedElements = tagsToStrings(elements.FromLogic(text))
		slog.Info("logic approved",
			"session", vs.SessionID, "problem", vs.ProblemNumber,
			"attempts", vs.Attempts, "confidence", analysis.Confidence)

		tone := scenario.ToneFor(false, true, vs.Attempts, vs.Strictness)
		resp := v.responder.Respond(ctx, scenario.Situation{
			Type:         scenario.TypeProgressValidation,
			Level:        vs.Level,
			Strictness:   vs.Strictness,
			Tone:         tone,
			Problem:      problem,
			StudentInput: text,
			History:      history,
			Guidance:     "The student's logic is approved. Congratulate them and tell them to implement exactly the plan they described.",
		})
		return model.LogicValidationResult{
			Level:      vs.Level,
			Strictness: vs.Strictness,
			Analysis:   analysis,
			Approved:   true,
			Response:   resp,
		}
	}

	vs.Level = nextLevel(vs.Level, analysis.Confidence)
	vs.Strictness = vs.Strictness.Next()

	missing := make([]elements.RequiredElement, 0, len(analysis.MissingElements))
	for _, m := range analysis.MissingElements {
		missing = append(missing, elements.RequiredElement(m))
	}
	questions := scenario.CrossQuestions(missing, vs.Strictness, problem)

	tone := scenario.ToneFor(false, false, vs.Attempts, vs.Strictness)
	guidance := "The explanation is incomplete. Do not approve it."
	if len(questions) > 0 {
		guidance += " Work these questions into your reply naturally: " + strings.Join(questions, " | ")
	}
	resp := v.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeForLevel(vs.Level),
		Level:        vs.Level,
		Strictness:   vs.Strictness,
		Tone:         tone,
		Problem:      problem,
		StudentInput: text,
		History:      history,
		Guidance:     guidance,
	})

	return model.LogicValidationResult{
		Level:          vs.Level,
		Strictness:     vs.Strictness,
		Analysis:       analysis,
		CrossQuestions: questions,
		Response:       resp,
	}
}

// handleGaming short-circuits validation: no cross-questions, terminal gaming
// level, maximum strictness, and a strict redirect back to explaining.
func (v *Validator) handleGaming(ctx context.Context, vs *model.ValidationState, det model.GamingDetection, text string, history []model.Turn, problem model.Problem) model.LogicValidationResult {
	vs.Level = model.LevelGamingDetected
	vs.Strictness = model.StrictnessGamingMode
	vs.GamingStrikes++
	slog.Info("gaming detected",
		"session", vs.SessionID, "problem", vs.ProblemNumber,
		"type", det.Type, "confidence", det.Confidence, "strikes", vs.GamingStrikes)

	resp := v.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeForGaming(det.Type),
		Level:        vs.Level,
		Strictness:   vs.Strictness,
		Tone:         model.ToneStrict,
		Problem:      problem,
		StudentInput: text,
		History:      history,
		Guidance:     "The student is trying to bypass the process (" + string(det.Type) + "). Refuse firmly, without hostility, and redirect them to explaining their own approach.",
	})
	return model.LogicValidationResult{
		Level:      vs.Level,
		Strictness: vs.Strictness,
		Gaming:     det,
		Response:   resp,
	}
}

// nextLevel advances the escalation ladder one step for a reasonable attempt
// and drops to basic explanation for a weak one. Terminal levels re-enter the
// ladder at cross-questioning once the student engages again.
func nextLevel(current model.ValidationLevel, confidence float64) model.ValidationLevel {
	if confidence < crossQuestionThreshold {
		return model.LevelBasicExplanation
	}
	switch current {
	case model.LevelInitialRequest, model.LevelBasicExplanation:
		return model.LevelCrossQuestioning
	case model.LevelCrossQuestioning:
		return model.LevelDetailedValidation
	case model.LevelDetailedValidation, model.LevelEdgeCaseTesting:
		return model.LevelEdgeCaseTesting
	default:
		return model.LevelCrossQuestioning
	}
}

func tagsToStrings(tags []elements.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
