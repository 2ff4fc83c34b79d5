// Package understanding verifies that a student can explain their own
// accepted code before the problem is marked complete. Scoring is
// deterministic: concept coverage plus depth-of-reasoning bonuses.
package understanding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/model"
	"github.com/logicfirst/tutor/internal/scenario"
)

var (
	conceptualWords = []string{"because", "so that", "in order to", "the reason"}
	deepWords       = []string{"alternatively", "could also", "trade-off", "advantage", "disadvantage"}
)

const (
	conceptualBonus = 0.1
	deepBonus       = 0.2
	maxGaps         = 1
	maxQuestions    = 3
)

// Verifier checks explanations of accepted code.
type Verifier struct {
	responder *scenario.Responder
}

// NewVerifier creates a Verifier.
func NewVerifier(responder *scenario.Responder) *Verifier {
	return &Verifier{responder: responder}
}

// Verify scores one explanation of the given code. The depth the student
// demonstrates sets the bar they must clear: deeper reasoning is held to a
// higher confidence threshold, shallow but accurate narration to a lower one.
func (v *Verifier) Verify(ctx context.Context, vs *model.ValidationState, explanation, code string, history []model.Turn, problem model.Problem) model.UnderstandingResult {
	concepts := elements.Analyze(code).Tags

	var explained, gaps []string
	for _, c := range concepts {
		if elements.ExplainsConcept(explanation, c) {
			explained = append(explained, string(c))
		} else {
			gaps = append(gaps, string(c))
		}
	}

	lowered := strings.ToLower(explanation)
	conceptualHits := countHits(lowered, conceptualWords)
	deepHits := countHits(lowered, deepWords)

	level := model.UnderstandingSurface
	switch {
	case deepHits >= 2:
		level = model.UnderstandingDeep
	case conceptualHits >= 2:
		level = model.UnderstandingConceptual
	}

	coverage := 1.0
	if len(concepts) > 0 {
		coverage = float64(len(explained)) / float64(len(concepts))
	}
	confidence := coverage + float64(conceptualHits)*conceptualBonus + float64(deepHits)*deepBonus
	if confidence > 1.0 {
		confidence = 1.0
	}

	result := model.UnderstandingResult{
		Level:      level,
		Confidence: confidence,
		Strengths:  strengths(coverage, conceptualHits, explanation),
		Gaps:       gapTags(coverage, conceptualHits, explanation),
		Verified:   confidence >= level.Threshold() && len(gaps) <= maxGaps,
	}

	if result.Verified {
		vs.Understanding = level
		slog.Info("understanding verified",
			"session", vs.SessionID, "problem", vs.ProblemNumber,
			"level", level, "confidence", confidence)
		result.Response = v.responder.Respond(ctx, scenario.Situation{
			Type:         scenario.TypeProgressValidation,
			Level:        model.LevelLogicApproved,
			Strictness:   vs.Strictness,
			Tone:         model.ToneCelebratory,
			Problem:      problem,
			StudentInput: explanation,
			History:      history,
			Guidance:     "The student explained their own code convincingly. Confirm completion and name one thing they did well.",
		})
		return result
	}

	result.Questions = questionsFor(level, gaps)
	result.Response = v.responder.Respond(ctx, scenario.Situation{
		Type:         scenario.TypeCrossQuestioning,
		Level:        model.LevelCrossQuestioning,
		Strictness:   vs.Strictness,
		Tone:         scenario.ToneFor(false, false, vs.Attempts, vs.Strictness),
		Problem:      problem,
		StudentInput: explanation,
		History:      history,
		Guidance:     "The explanation has gaps. Ask about the unexplained parts; do not explain the code for the student. Questions to use: " + strings.Join(result.Questions, " | "),
	})
	return result
}

func countHits(lowered string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lowered, w) {
			n++
		}
	}
	return n
}

func strengths(coverage float64, conceptualHits int, explanation string) []string {
	var out []string
	if coverage > 0.7 {
		out = append(out, "good_concept_coverage")
	}
	if conceptualHits > 0 {
		out = append(out, "explains_reasoning")
	}
	if len(explanation) > 100 {
		out = append(out, "detailed_explanation")
	}
	return out
}

func gapTags(coverage float64, conceptualHits int, explanation string) []string {
	var out []string
	if coverage <= 0.7 {
		out = append(out, "limited_concept_coverage")
	}
	if conceptualHits == 0 {
		out = append(out, "lacks_reasoning")
	}
	if len(explanation) <= 100 {
		out = append(out, "brief_explanation")
	}
	return out
}

// conceptPhrase renders a concept tag in question-friendly words.
func conceptPhrase(tag string) string {
	switch elements.Tag(tag) {
	case elements.TagListCreation:
		return "the list you create"
	case elements.TagForLoop:
		return "your for loop"
	case elements.TagWhileLoop:
		return "your while loop"
	case elements.TagRangeUsage:
		return "the way your loop counts"
	case elements.TagUserInput:
		return "the step that reads from the user"
	case elements.TagOutputDisplay:
		return "the step that shows the result"
	case elements.TagTypeConversion:
		return "the conversion of the typed text"
	case elements.TagListAppend:
		return "the step that adds each value to the list"
	case elements.TagVariableAssignment:
		return "the variables you store things in"
	case elements.TagConditionalLogic:
		return "the condition you check"
	case elements.TagFunctionDefinition:
		return "the function you define"
	default:
		return "that part of your code"
	}
}

// questionsFor drills into at most three unexplained concepts, at the depth
// the student has demonstrated so far.
func questionsFor(level model.UnderstandingLevel, gaps []string) []string {
	var out []string
	for _, g := range gaps {
		phrase := conceptPhrase(g)
		var q string
		switch level {
		case model.UnderstandingDeep, model.UnderstandingMastery:
			q = "What would you lose, or gain, if you removed " + phrase + " and solved it another way?"
		case model.UnderstandingConceptual:
			q = "Why is " + phrase + " there? What goes wrong without it?"
		default:
			q = "What happens, step by step, when " + phrase + " runs?"
		}
		out = append(out, q)
		if len(out) == maxQuestions {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "Walk me through your code once more, and this time tell me why each part is there, not just what it does.")
	}
	return out
}
