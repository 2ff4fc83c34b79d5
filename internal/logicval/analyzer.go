// Package logicval validates a student's natural-language logic explanation
// before any code is allowed. Analysis prefers the generation service with a
// structured scoring instruction and falls back to deterministic keyword
// heuristics field by field, so the protocol keeps working offline.
package logicval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/llm"
	"github.com/logicfirst/tutor/internal/model"
)

// Generator is the completion surface the analyzer needs.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Analyzer scores a logic explanation against the elements required at the
// current strictness.
type Analyzer struct {
	gen Generator
}

// NewAnalyzer creates an Analyzer. With a nil generator every call takes the
// heuristic path.
func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

const (
	approveThreshold       = 0.75
	crossQuestionThreshold = 0.5

	lengthBonusCap   = 0.2
	termBonusCap     = 0.1
	termBonusPerHit  = 0.02
	lengthBonusScale = 200.0
)

// Analyze scores the explanation. The generation path is attempted first;
// any field the service fails to return usably is replaced by the heuristic
// value for that field.
func (a *Analyzer) Analyze(ctx context.Context, text string, strictness model.Strictness, problem model.Problem) model.ContentAnalysis {
	heuristic := a.analyzeHeuristic(text, strictness)
	if a.gen == nil {
		return heuristic
	}

	out, err := a.gen.Complete(ctx, llm.Request{
		System:      buildAnalysisPrompt(strictness, problem),
		Messages:    []llm.Message{{Role: "user", Content: llm.SanitizeInput(text)}},
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		slog.Warn("logic analysis generation failed, using heuristic",
			"kind", llm.Classify(err), "error", err)
		return heuristic
	}
	return mergeStructured(out, heuristic)
}

// analyzeHeuristic is the deterministic path: keyword coverage of the
// required elements plus bounded bonuses for length, technical vocabulary,
// and process-flow wording.
func (a *Analyzer) analyzeHeuristic(text string, strictness model.Strictness) model.ContentAnalysis {
	required := elements.RequiredFor(int(strictness))
	var covered, missing []string
	for _, elem := range required {
		if elements.Covers(text, elem) {
			covered = append(covered, string(elem))
		} else {
			missing = append(missing, string(elem))
		}
	}

	conf := float64(len(covered)) / float64(len(required))

	lengthBonus := float64(len(text)) / lengthBonusScale
	if lengthBonus > lengthBonusCap {
		lengthBonus = lengthBonusCap
	}
	conf += lengthBonus
	conf += boundedTermBonus(text, elements.TechnicalTerms)
	conf += boundedTermBonus(text, elements.FlowWords)
	if conf > 1.0 {
		conf = 1.0
	}

	return model.ContentAnalysis{
		Confidence:      conf,
		CoveredElements: covered,
		MissingElements: missing,
		Recommendation:  recommendationFor(conf),
		Source:          "heuristic",
	}
}

func boundedTermBonus(text string, terms []string) float64 {
	t := strings.ToLower(text)
	bonus := 0.0
	for _, term := range terms {
		if strings.Contains(t, term) {
			bonus += termBonusPerHit
		}
	}
	if bonus > termBonusCap {
		bonus = termBonusCap
	}
	return bonus
}

func recommendationFor(conf float64) model.Recommendation {
	switch {
	case conf > approveThreshold:
		return model.RecommendApprove
	case conf > crossQuestionThreshold:
		return model.RecommendCrossQuestion
	default:
		return model.RecommendRequireMoreDetail
	}
}

func buildAnalysisPrompt(strictness model.Strictness, problem model.Problem) string {
	required := elements.RequiredFor(int(strictness))
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}

	var sb strings.Builder
	sb.WriteString("You evaluate whether a student's plain-language plan for a programming problem is complete.\n")
	sb.WriteString("You never write code and never solve the problem yourself.\n\n")
	sb.WriteString("Problem: " + problem.Title + "\n" + problem.Description + "\n\n")
	sb.WriteString("The plan must address each of these elements: " + strings.Join(names, ", ") + "\n\n")
	sb.WriteString("Reply with EXACTLY these lines and nothing else:\n")
	sb.WriteString("CONFIDENCE_SCORE: <number between 0.0 and 1.0>\n")
	sb.WriteString("COVERED_ELEMENTS: <comma-separated element names, or none>\n")
	sb.WriteString("MISSING_ELEMENTS: <comma-separated element names, or none>\n")
	sb.WriteString(fmt.Sprintf("RECOMMENDATION: <%s, %s or %s>\n",
		model.RecommendApprove, model.RecommendCrossQuestion, model.RecommendRequireMoreDetail))
	return sb.String()
}

// mergeStructured parses the line-prefixed reply, keeping the heuristic value
// for any field that is absent or invalid.
func mergeStructured(raw string, heuristic model.ContentAnalysis) model.ContentAnalysis {
	result := heuristic
	result.Source = "llm"
	sawAny := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CONFIDENCE_SCORE:"):
			v := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE_SCORE:"))
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
				result.Confidence = f
				sawAny = true
			}
		case strings.HasPrefix(line, "COVERED_ELEMENTS:"):
			if list, ok := parseElementList(strings.TrimPrefix(line, "COVERED_ELEMENTS:")); ok {
				result.CoveredElements = list
				sawAny = true
			}
		case strings.HasPrefix(line, "MISSING_ELEMENTS:"):
			if list, ok := parseElementList(strings.TrimPrefix(line, "MISSING_ELEMENTS:")); ok {
				result.MissingElements = list
				sawAny = true
			}
		case strings.HasPrefix(line, "RECOMMENDATION:"):
			v := model.Recommendation(strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "RECOMMENDATION:"))))
			if v == model.RecommendApprove || v == model.RecommendCrossQuestion || v == model.RecommendRequireMoreDetail {
				result.Recommendation = v
				sawAny = true
			}
		}
	}

	if !sawAny {
		slog.Warn("unusable structured analysis reply, using heuristic", "raw", truncate(raw, 200))
		return heuristic
	}
	return result
}

// parseElementList accepts only names from the element vocabulary; unknown
// tokens invalidate the field rather than smuggling free text through.
func parseElementList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, true
	}
	known := make(map[string]bool)
	for _, e := range elements.RequiredFor(int(model.StrictnessGamingMode)) {
		known[string(e)] = true
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(tok))
		if !known[name] {
			return nil, false
		}
		out = append(out, name)
	}
	return out, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
