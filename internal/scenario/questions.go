package scenario

import (
	"strings"

	"github.com/logicfirst/tutor/internal/elements"
	"github.com/logicfirst/tutor/internal/model"
)

// crossQuestionTemplates holds the question bank per missing explanation
// element. Templates are ordered gentlest first; at low strictness only the
// first two are drawn from. {data_type} is replaced with the problem's data
// kind.
var crossQuestionTemplates = map[elements.RequiredElement][]string{
	elements.ElemDataStructureChoice: {
		"Where will your program keep the {data_type} while it runs?",
		"You'll have several {data_type} at once. What holds them all?",
		"Name the exact structure you'd use for the {data_type}, and why that one.",
		"What happens to your chosen structure if there are zero {data_type}?",
	},
	elements.ElemInputMethod: {
		"How do the {data_type} get into your program in the first place?",
		"What does the user actually do, and what does your program do in response?",
		"What precisely does your input step hand you, and is it what the rest of your plan expects?",
	},
	elements.ElemLoopStructure: {
		"Something here happens more than once. Which part, and how do you make it repeat?",
		"How many times does your repetition run, and how does it know when to stop?",
		"Walk me through the second pass of your loop: what is different from the first pass?",
	},
	elements.ElemProcessFlow: {
		"What is the very first thing your program does?",
		"Put your steps in order for me: first, then, finally.",
		"Could any of your steps be swapped in order? Which ones, and why or why not?",
	},
	elements.ElemVariableNames: {
		"What would you call the thing that holds the {data_type}?",
		"Give each thing in your plan a name so we can talk about them precisely.",
		"If another student read your variable names, would they guess what each holds?",
	},
	elements.ElemDataTypeHandling: {
		"When the user types something in, what kind of value does your program receive?",
		"Do the {data_type} need converting at any point? Where?",
		"What breaks first in your plan if you skip the conversion step?",
	},
	elements.ElemOutputMethod: {
		"How does the user see the result at the end?",
		"What exactly gets printed, and does the format matter here?",
		"Does your output happen inside the repetition or after it? Why there?",
	},
	elements.ElemEdgeCaseConsideration: {
		"What's the strangest input a user could give this program?",
		"What does your plan do with an empty input, or with zero {data_type}?",
		"Find the input that breaks your plan. What is it?",
	},
	elements.ElemErrorHandlingAwareness: {
		"What could go wrong while this runs, even if your logic is right?",
		"If the user types something unexpected, what should happen: crash, retry, or skip?",
		"Which of your steps is most likely to fail, and how would you notice?",
	},
}

// CrossQuestions builds up to three targeted questions for the elements the
// student's explanation missed. Lenient and moderate strictness draw only
// from each element's gentler openers.
func CrossQuestions(missing []elements.RequiredElement, strictness model.Strictness, problem model.Problem) []string {
	dataType := DataKind(problem)
	var out []string
	for i, elem := range missing {
		templates := crossQuestionTemplates[elem]
		if len(templates) == 0 {
			continue
		}
		pool := templates
		if strictness <= model.StrictnessModerate && len(templates) > 2 {
			pool = templates[:2]
		}
		q := pool[i%len(pool)]
		out = append(out, strings.ReplaceAll(q, "{data_type}", dataType))
		if len(out) == 3 {
			break
		}
	}
	return out
}

// DataKind infers what kind of values the problem handles, for question
// phrasing.
func DataKind(p model.Problem) string {
	desc := strings.ToLower(p.Title + " " + p.Description)
	switch {
	case strings.Contains(desc, "name"):
		return "names"
	case strings.Contains(desc, "word") || strings.Contains(desc, "string") || strings.Contains(desc, "letter") || strings.Contains(desc, "text"):
		return "strings"
	case strings.Contains(desc, "number") || strings.Contains(desc, "integer") || strings.Contains(desc, "digit") || strings.Contains(desc, "count") || strings.Contains(desc, "sum"):
		return "numbers"
	default:
		return "values"
	}
}
