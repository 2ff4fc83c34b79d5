// Package gaming detects attempts to game the tutoring protocol: parroting
// the tutor back, repeating a vague answer, asking for the answer outright,
// or answering with no effort at all. Detection is deterministic and additive.
package gaming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/logicfirst/tutor/internal/model"
)

const (
	similarityThreshold = 0.8
	flagThreshold       = 0.3
	tutorWindow         = 10

	copyPasteWeight   = 0.4
	repetitionWeight  = 0.2
	bypassWeight      = 0.2
	shortAnswerWeight = 0.1
	defaultExpansion  = 1.3
	shortAnswerMaxLen = 20
	repetitionMaxLen  = 50
)

// bypassPatterns each name one category of trying to skip the protocol.
// Matching a category adds one bypass increment regardless of how many of its
// phrasings appear.
var bypassPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"code request", regexp.MustCompile(`(?i)\b(give|show)\s+me\s+(the\s+)?code\b`)},
	{"skip request", regexp.MustCompile(`(?i)\b(next\s+question|skip)\b`)},
	{"hint request", regexp.MustCompile(`(?i)\bgive\s+me\s+(a\s+)?hint\b`)},
	{"answer request", regexp.MustCompile(`(?i)\btell\s+me\s+(the\s+)?answer\b`)},
	{"just give", regexp.MustCompile(`(?i)\bjust\s+give\b`)},
	{"help plea", regexp.MustCompile(`(?i)\bcan\s+you\s+help\b`)},
}

// Detector checks student turns for gaming behavior. The expansion ratio
// controls when a longer restatement of a previous answer counts as genuine
// elaboration rather than repetition.
type Detector struct {
	expansionRatio float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithExpansionRatio overrides the elaboration ratio (default 1.3). A repeat
// at least ratio times longer than the original is not flagged.
func WithExpansionRatio(r float64) Option {
	return func(d *Detector) {
		if r > 0 {
			d.expansionRatio = r
		}
	}
}

// NewDetector returns a Detector with the given options applied.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{expansionRatio: defaultExpansion}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scores one student turn against the recent conversation. Rule
// contributions are additive and the confidence is capped at 1.0; the last
// rule to fire sets the type. The result is flagged when the total exceeds
// the flag threshold.
func (d *Detector) Detect(text string, history []model.Turn) model.GamingDetection {
	det := model.GamingDetection{}
	trimmed := strings.TrimSpace(text)

	// Parroting the tutor back.
	for _, turn := range lastTutorTurns(history, tutorWindow) {
		if sim := jaccard(trimmed, turn.Content); sim > similarityThreshold {
			det.Confidence += copyPasteWeight
			det.Type = model.GamingCopyPaste
			det.Evidence = append(det.Evidence, fmt.Sprintf("echoes tutor message (similarity %.2f)", sim))
			break
		}
	}

	// Repeating their own previous answer without elaborating.
	if prev := lastStudentTurn(history); prev != nil {
		sim := jaccard(trimmed, prev.Content)
		expanded := float64(len(trimmed)) > float64(len(prev.Content))*d.expansionRatio
		if sim > similarityThreshold && !expanded && len(trimmed) < repetitionMaxLen {
			det.Confidence += repetitionWeight
			det.Type = model.GamingVagueRepetition
			det.Evidence = append(det.Evidence, fmt.Sprintf("repeats previous answer (similarity %.2f)", sim))
		}
	}

	// Asking to skip the process.
	for _, bp := range bypassPatterns {
		if bp.re.MatchString(trimmed) {
			det.Confidence += bypassWeight
			det.Type = model.GamingBypassAttempt
			det.Evidence = append(det.Evidence, "bypass phrasing: "+bp.name)
		}
	}

	// Minimal-effort answer, only when nothing else fired.
	if len(trimmed) < shortAnswerMaxLen && det.Type == model.GamingNone {
		det.Confidence += shortAnswerWeight
		det.Type = model.GamingInsufficientEffort
		det.Evidence = append(det.Evidence, "answer under minimum length")
	}

	if det.Confidence > 1.0 {
		det.Confidence = 1.0
	}
	det.Flagged = det.Confidence > flagThreshold
	return det
}

func lastTutorTurns(history []model.Turn, n int) []model.Turn {
	var out []model.Turn
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if history[i].Role == model.RoleTutor {
			out = append(out, history[i])
		}
	}
	return out
}

func lastStudentTurn(history []model.Turn) *model.Turn {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleStudent {
			return &history[i]
		}
	}
	return nil
}

// jaccard computes word-set overlap between two texts, case-insensitive.
// Two empty texts are identical; one empty text matches nothing.
func jaccard(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
