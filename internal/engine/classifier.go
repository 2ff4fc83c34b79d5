package engine

import (
	"regexp"
	"strings"

	"github.com/logicfirst/tutor/internal/elements"
)

// InputKind classifies what a student turn is trying to do.
type InputKind string

const (
	KindCode       InputKind = "code_submission"
	KindQuestion   InputKind = "question"
	KindNavigation InputKind = "navigation"
	KindReady      InputKind = "ready"
	KindStuck      InputKind = "stuck"
	KindSocial     InputKind = "social"
	KindGeneral    InputKind = "general"
)

// Classification is the scored outcome of classifying one turn.
type Classification struct {
	Kind       InputKind
	Confidence float64
	Indicators []string
}

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
	name   string
}

var codePatterns = []weightedPattern{
	{re: regexp.MustCompile(`\bdef\s+\w+\s*\(`), weight: 0.9, name: "function_definition"},
	{re: regexp.MustCompile(`\bfor\s+\w+\s+in\s+`), weight: 0.8, name: "for_loop"},
	{re: regexp.MustCompile(`\bwhile\s+.+:`), weight: 0.8, name: "while_loop"},
	{re: regexp.MustCompile(`\bif\s+.+:`), weight: 0.7, name: "if_statement"},
	{re: regexp.MustCompile(`\breturn\s+`), weight: 0.7, name: "return_statement"},
	{re: regexp.MustCompile(`\bprint\s*\(`), weight: 0.6, name: "print_call"},
	{re: regexp.MustCompile(`\binput\s*\(`), weight: 0.6, name: "input_call"},
	{re: regexp.MustCompile(`\.append\s*\(`), weight: 0.7, name: "append_call"},
	{re: regexp.MustCompile(`\brange\s*\(`), weight: 0.6, name: "range_call"},
	{re: regexp.MustCompile(`\blen\s*\(`), weight: 0.5, name: "len_call"},
	{re: regexp.MustCompile("```"), weight: 0.9, name: "code_fence"},
	{re: regexp.MustCompile(`\w+\s*=\s*\[`), weight: 0.6, name: "list_assignment"},
}

var questionPatterns = []weightedPattern{
	{re: regexp.MustCompile(`\?`), weight: 0.9, name: "question_mark"},
	{re: regexp.MustCompile(`\bhow\b`), weight: 0.7, name: "how_question"},
	{re: regexp.MustCompile(`\bwhat\b`), weight: 0.6, name: "what_question"},
	{re: regexp.MustCompile(`\bwhy\b`), weight: 0.7, name: "why_question"},
	{re: regexp.MustCompile(`\bshould i\b`), weight: 0.6, name: "should_i"},
	{re: regexp.MustCompile(`\bdo i need\b`), weight: 0.6, name: "do_i_need"},
	{re: regexp.MustCompile(`\bcan i\b`), weight: 0.6, name: "can_i"},
	{re: regexp.MustCompile(`\bexplain\b`), weight: 0.8, name: "explanation_request"},
}

var navigationPatterns = []weightedPattern{
	{re: regexp.MustCompile(`\bnext\b`), weight: 0.8, name: "next_request"},
	{re: regexp.MustCompile(`\bmove on\b`), weight: 0.9, name: "move_on"},
	{re: regexp.MustCompile(`\bdone\b`), weight: 0.6, name: "done"},
	{re: regexp.MustCompile(`\bfinished\b`), weight: 0.8, name: "finished"},
	{re: regexp.MustCompile(`\bcompleted\b`), weight: 0.7, name: "completed"},
	{re: regexp.MustCompile(`\bskip\b`), weight: 0.8, name: "skip_request"},
}

var readyPatterns = []weightedPattern{
	{re: regexp.MustCompile(`\bready\b`), weight: 0.9, name: "ready"},
	{re: regexp.MustCompile(`\bstart\b`), weight: 0.8, name: "start"},
	{re: regexp.MustCompile(`\bbegin\b`), weight: 0.8, name: "begin"},
	{re: regexp.MustCompile(`\blet'?s go\b`), weight: 0.9, name: "lets_go"},
	{re: regexp.MustCompile(`\bok\b`), weight: 0.4, name: "ok"},
	{re: regexp.MustCompile(`\byes\b`), weight: 0.4, name: "yes"},
	{re: regexp.MustCompile(`\bcontinue\b`), weight: 0.6, name: "continue"},
	{re: regexp.MustCompile(`\bshow me\b`), weight: 0.7, name: "show_me"},
}

var stuckPatterns = []weightedPattern{
	{re: regexp.MustCompile(`\bstuck\b`), weight: 0.9, name: "stuck"},
	{re: regexp.MustCompile(`\bconfused\b`), weight: 0.8, name: "confused"},
	{re: regexp.MustCompile(`\bdon'?t understand\b`), weight: 0.9, name: "understanding_issue"},
	{re: regexp.MustCompile(`\bnot clear\b`), weight: 0.8, name: "not_clear"},
	{re: regexp.MustCompile(`\bnot getting it\b`), weight: 0.8, name: "not_getting_it"},
	{re: regexp.MustCompile(`\bhelp\b`), weight: 0.7, name: "help_request"},
	{re: regexp.MustCompile(`\bi don'?t know\b`), weight: 0.8, name: "dont_know"},
}

var socialPatterns = []weightedPattern{
	{re: regexp.MustCompile(`\bhello\b`), weight: 0.8, name: "greeting"},
	{re: regexp.MustCompile(`\bhi\b`), weight: 0.7, name: "greeting"},
	{re: regexp.MustCompile(`\bthanks?\b`), weight: 0.6, name: "thanks"},
	{re: regexp.MustCompile(`\bthank you\b`), weight: 0.8, name: "thank_you"},
}

func applyPatterns(lowered string, set []weightedPattern) (float64, []string) {
	var score float64
	var hits []string
	for _, p := range set {
		n := len(p.re.FindAllStringIndex(lowered, -1))
		if n == 0 {
			continue
		}
		// Repeats raise confidence with diminishing returns.
		score += p.weight * min(float64(n)*0.5, 1.0)
		hits = append(hits, p.name)
	}
	return score, hits
}

// Classify scores a student turn against every pattern family and returns the
// best-scoring kind. Code detection is backed by the structural check so a
// bare assignment line still counts.
func Classify(text string) Classification {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Classification{Kind: KindGeneral, Confidence: 0.5, Indicators: []string{"empty_input"}}
	}
	lowered := strings.ToLower(trimmed)

	codeScore, codeHits := applyPatterns(trimmed, codePatterns)
	if elements.LooksLikeCode(trimmed) {
		codeScore += 0.8
		codeHits = append(codeHits, "code_structure")
	}
	questionScore, questionHits := applyPatterns(lowered, questionPatterns)
	navScore, navHits := applyPatterns(lowered, navigationPatterns)
	readyScore, readyHits := applyPatterns(lowered, readyPatterns)
	stuckScore, stuckHits := applyPatterns(lowered, stuckPatterns)
	socialScore, socialHits := applyPatterns(lowered, socialPatterns)

	type candidate struct {
		kind  InputKind
		score float64
		hits  []string
	}
	// Order breaks ties: code wins over a question mark inside code, stuck
	// wins over the question words it usually arrives with.
	candidates := []candidate{
		{KindCode, codeScore, codeHits},
		{KindStuck, stuckScore, stuckHits},
		{KindNavigation, navScore, navHits},
		{KindReady, readyScore, readyHits},
		{KindQuestion, questionScore, questionHits},
		{KindSocial, socialScore, socialHits},
		{KindGeneral, 0.1, nil},
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	return Classification{
		Kind:       best.kind,
		Confidence: min(best.score/2.0, 1.0),
		Indicators: best.hits,
	}
}
