// Package codeval validates submitted code against the student's approved
// logic. It never fixes code and never shows code: every outcome is expressed
// as questions that lead the student to their own correction.
package codeval

import (
	"context"
	"log/slog"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
)

const (
	alignmentAdvance      = 0.8
	alignmentRestart      = 0.5
	maxAlignmentRounds    = 2
	maxAdvancedConstructs = 2
)

// Validator checks a code submission for authenticity, syntax, and alignment
// with the approved logic.
type Validator struct {
	responder *scenario.Responder
}

// NewValidator creates a code validator.
func NewValidator(responder *scenario.Responder) *Validator {
	return &Validator{responder: responder}
}

// Validate processes one code submission, mutating vs in place. The approved
// logic element tags recorded at approval time are the alignment baseline.
func (v *Validator) Validate(ctx context.Context, vs *model.ValidationState, code string, history []model.Turn, problem model.Problem) model.CodeValidationResult {
	analysis := elements.Analyze(code)

	if det := detectCodeGaming(analysis); det.Flagged {
		vs.CodePhase = model.PhaseCodeGamingDetected
		vs.GamingStrikes++
		slog.Info("code gaming detected",
			"session", vs.SessionID, "problem", vs.ProblemNumber,
			"type", det.Type, "evidence", det.Evidence)
		resp := v.responder.Respond(ctx, scenario.Situation{
			Type:         scenario.TypeCopyPasteDetection,
			Level:        model.LevelGamingDetected,
			Strictness:   model.StrictnessGamingMode,
			Tone:         model.ToneStrict,
			Problem:      problem,
			StudentInput: code,
			History:      history,
			Guidance:     "The submitted code does not look like the student's own work. Say so plainly and ask them to rebuild it from their approved plan, step by step.",
		})
		return model.CodeValidationResult{
			Phase:     vs.CodePhase,
			Parseable: analysis.Parseable,
			Gaming:    det,
			Response:  resp,
		}
	}

	if !analysis.Parseable {
		vs.CodePhase = model.PhaseCodeSubmitted
		questions := debugQuestions(analysis.Issue)
		resp := v.respondWithQuestions(ctx, vs, code, history, problem, questions,
			"The code has a syntax problem ("+string(analysis.Issue)+"). Never show corrected code; ask the questions so the student finds the line themselves.")
		return model.CodeValidationResult{
			Phase:       vs.CodePhase,
			Parseable:   false,
			SyntaxIssue: model.SyntaxIssue(analysis.Issue),
			Questions:   questions,
			Response:    resp,
		}
	}

	matched, missing, extra := align(vs.ApprovedElements, analysis.Tags)
	score := 1.0
	if len(vs.ApprovedElements) > 0 {
		score = float64(len(matched)) / float64(len(vs.ApprovedElements))
	}

	result := model.CodeValidationResult{
		Parseable:       true,
		AlignmentScore:  score,
		MatchedElements: matched,
		MissingElements: missing,
		ExtraElements:   extra,
	}

	switch {
	case score >= alignmentAdvance:
		vs.CodePhase = model.PhaseCodeUnderstanding
		result.Questions = []string{
			"Your code matches your plan. Before we call it done: walk me through your code line by line. What does each part do, and why is it there?",
		}
		result.Response = v.respondWithQuestions(ctx, vs, code, history, problem, result.Questions,
			"The code aligns with the approved plan. Acknowledge that, then ask the student to explain their own code before completion.")

	case score >= alignmentRestart && vs.AlignmentAsked < maxAlignmentRounds:
		vs.CodePhase = model.PhaseLogicAlignmentCheck
		vs.AlignmentAsked++
		result.Questions = alignmentQuestions(missing)
		result.Response = v.respondWithQuestions(ctx, vs, code, history, problem, result.Questions,
			"The code partly matches the plan. Point at the gap only through these questions; never supply the missing code.")

	default:
		vs.CodePhase = model.PhaseGuidedDiscovery
		vs.AlignmentAsked = 0
		result.Questions = restartQuestions(vs.ApprovedElements)
		result.Response = v.respondWithQuestions(ctx, vs, code, history, problem, result.Questions,
			"The code diverges from the approved plan. Restart guided discovery from the plan's first step, one question at a time.")
	}

	result.Phase = vs.CodePhase
	return result
}

func (v *Validator) respondWithQuestions(ctx context.Context, vs *model.ValidationState, code string, history []model.Turn, problem model.Problem, questions []string, guidance string) string {
	if len(questions) > 0 {
		guidance += " Questions to use: "
		for i, q := range questions {
			if i > 0 {
				guidance += " | "
			}
			guidance += q
		}
	}
	return v.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeProgressValidation,
		Level:        model.LevelLogicApproved,
		Strictness:   vs.Strictness,
		Tone:         scenario.ToneFor(false, false, vs.Attempts, vs.Strictness),
		Problem:      problem,
		StudentInput: code,
		History:      history,
		Guidance:     guidance,
	})
}

// detectCodeGaming flags submissions that are plainly not the student's own:
// attribution comments, or a pile of advanced constructs in otherwise valid
// code from a student still on basics.
func detectCodeGaming(a elements.CodeAnalysis) model.GamingDetection {
	det := model.GamingDetection{}
	if len(a.AttributionHits) > 0 {
		det.Flagged = true
		det.Type = model.GamingCopyPaste
		det.Confidence = 0.9
		det.Evidence = a.AttributionHits
		return det
	}
	if a.Parseable && a.AdvancedConstructs > maxAdvancedConstructs {
		det.Flagged = true
		det.Type = model.GamingCopyPaste
		det.Confidence = 0.7
		det.Evidence = []string{"advanced constructs beyond the approved plan"}
	}
	return det
}

// align matches the approved logic tags against the code's tags, allowing
// the fuzzy equivalences (generic loop vs concrete loop, counted iteration
// vs range).
func align(logicTags []string, codeTags []elements.Tag) (matched, missing, extra []string) {
	used := make(map[elements.Tag]bool)
	for _, lt := range logicTags {
		found := false
		for _, ct := range codeTags {
			if elements.Satisfies(elements.Tag(lt), ct) {
				found = true
				used[ct] = true
				break
			}
		}
		if found {
			matched = append(matched, lt)
		} else {
			missing = append(missing, lt)
		}
	}
	for _, ct := range codeTags {
		if used[ct] {
			continue
		}
		covered := false
		for _, lt := range logicTags {
			if elements.Satisfies(elements.Tag(lt), ct) {
				covered = true
				break
			}
		}
		// Plumbing every program has is not "extra".
		if !covered && ct != elements.TagVariableAssignment {
			extra = append(extra, string(ct))
		}
	}
	return matched, missing, extra
}
