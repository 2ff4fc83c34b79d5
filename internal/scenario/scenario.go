// Package scenario holds the curated tutoring scenario library and selects
// few-shot examples for response generation. Each scenario pairs a student
// situation with the response a good tutor gave, its tone, and the teaching
// principle behind it.
package scenario

import (
	"sort"

	"github.com/logicfirst/tutor/internal/model"
)

// Type names a tutoring situation the library has examples for.
type Type string

const (
	TypeVagueLogicAttempt   Type = "vague_logic_attempt"
	TypeCopyPasteDetection  Type = "copy_paste_detection"
	TypeCodeRequest         Type = "code_request"
	TypeNextQuestionRequest Type = "next_question_request"
	TypeRepetitiveResponse  Type = "repetitive_response"
	TypeInsufficientDetail  Type = "insufficient_detail"
	TypeLogicValidation     Type = "logic_validation"
	TypeCrossQuestioning    Type = "cross_questioning"
	TypeDetailedValidation  Type = "detailed_validation"
	TypeEdgeCaseTesting     Type = "edge_case_testing"
	TypeGamingResponse      Type = "gaming_response"
	TypeProgressValidation  Type = "progress_validation"
)

// Scenario is one curated example of handling a student situation.
type Scenario struct {
	ID                string
	Type              Type
	ProblemContext    string
	StudentInput      string
	StudentBehavior   string
	Response          string
	Tone              model.Tone
	TeachingPrinciple string
	FollowUps         []string
	ValidationLevel   model.ValidationLevel
	Strictness        model.Strictness
	Tags              []string
}

const (
	maxSelected = 5
	maxFewShot  = 3
)

// Select returns up to five scenarios of the given type relevant to the
// current validation level and strictness. A scenario qualifies on an exact
// validation-level match or a strictness within one step; exact level matches
// sort first.
func Select(typ Type, level model.ValidationLevel, strictness model.Strictness) []Scenario {
	var matched []Scenario
	for _, s := range library {
		if s.Type != typ {
			continue
		}
		exactLevel := s.ValidationLevel == level
		closeStrictness := abs(int(s.Strictness)-int(strictness)) <= 1
		if exactLevel || closeStrictness {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ei := matched[i].ValidationLevel == level
		ej := matched[j].ValidationLevel == level
		return ei && !ej
	})
	if len(matched) > maxSelected {
		matched = matched[:maxSelected]
	}
	return matched
}

// TypeForGaming maps a gaming detection to the scenario type that handles it.
func TypeForGaming(g model.GamingType) Type {
	switch g {
	case model.GamingCopyPaste:
		return TypeCopyPasteDetection
	case model.GamingVagueRepetition:
		return TypeRepetitiveResponse
	case model.GamingBypassAttempt:
		return TypeCodeRequest
	case model.GamingInsufficientEffort:
		return TypeInsufficientDetail
	default:
		return TypeGamingResponse
	}
}

// TypeForLevel maps a validation level to the scenario type exercised there.
func TypeForLevel(level model.ValidationLevel) Type {
	switch level {
	case model.LevelCrossQuestioning:
		return TypeCrossQuestioning
	case model.LevelDetailedValidation:
		return TypeDetailedValidation
	case model.LevelEdgeCaseTesting:
		return TypeEdgeCaseTesting
	case model.LevelGamingDetected:
		return TypeGamingResponse
	case model.LevelLogicApproved:
		return TypeProgressValidation
	default:
		return TypeLogicValidation
	}
}

// ToneFor picks the response register for the current situation. Gaming
// always gets the strict register; an approval is celebrated; a student on
// their third attempt or later gets empathy before firmness.
func ToneFor(gamingFlagged, approved bool, attempts int, strictness model.Strictness) model.Tone {
	switch {
	case gamingFlagged:
		return model.ToneStrict
	case approved:
		return model.ToneCelebratory
	case attempts >= 3:
		return model.ToneEmpathetic
	}
	switch strictness {
	case model.StrictnessLenient, model.StrictnessModerate:
		return model.ToneEncouraging
	case model.StrictnessStrict:
		return model.ToneFirmButKind
	default:
		return model.ToneStrict
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
