package codeval

import (
	"github.com/logicfirst/tutor/internal/elements"
)

// debugQuestionBank maps a syntax failure to questions that lead the student
// to the broken line. None of them contain code.
var debugQuestionBank = map[elements.SyntaxIssue][]string{
	elements.IssueMissingColon: {
		"Look at the line that starts your loop or condition. What character does that kind of line always end with?",
		"Compare that line with one from a program you know works. What's different at the end?",
	},
	elements.IssueIndentation: {
		"Which lines belong inside your loop? How does the language know they're inside?",
		"Look at the line right after your loop starts. Where does it begin compared to the line above?",
	},
	elements.IssueUnmatchedParenthesis: {
		"Count the opening and closing round brackets on each line. Do they pair up everywhere?",
		"One of your function calls never closes. Which one?",
	},
	elements.IssueUnmatchedBracket: {
		"Count your square brackets. Does every opener have a closer?",
		"Look at where you build your list. Is it finished?",
	},
	elements.IssueGeneric: {
		"Read your code out loud, line by line. Which line doesn't sound like a complete instruction?",
		"If you ran this, which line do you think the error message would point at, and why?",
	},
}

func debugQuestions(issue elements.SyntaxIssue) []string {
	if qs, ok := debugQuestionBank[issue]; ok {
		return qs
	}
	return debugQuestionBank[elements.IssueGeneric]
}

// alignmentQuestionBank maps a plan element absent from the code to a leading
// question about it.
var alignmentQuestionBank = map[elements.Tag]string{
	elements.TagListCreation:    "Your plan kept the values in a list. Where in your code does that list come into existence?",
	elements.TagForLoop:         "Your plan repeated a step a set number of times. Which part of your code does the repeating?",
	elements.TagWhileLoop:       "Your plan kept going until a condition changed. Where does your code check that condition?",
	elements.TagLoopStructure:   "Your plan had a repeating step. Show me where your code repeats.",
	elements.TagUserInput:       "Your plan asked the user for values. Where does your code ask?",
	elements.TagOutputDisplay:   "Your plan showed a result at the end. Where does your code show it?",
	elements.TagTypeConversion:  "Your plan converted the typed text into a number. Where does that happen in your code?",
	elements.TagListAppend:      "Your plan added each value to the list. Which line does the adding?",
	elements.TagRangeUsage:      "Your plan counted a fixed number of repetitions. How does your code count them?",
	elements.TagFixedIterations: "Your plan said a specific number of times. Where does that number appear in your code?",
}

// alignmentQuestions builds up to two questions for plan elements the code
// does not realize.
func alignmentQuestions(missing []string) []string {
	var out []string
	for _, m := range missing {
		if q, ok := alignmentQuestionBank[elements.Tag(m)]; ok {
			out = append(out, q)
		} else {
			out = append(out, "Your plan mentioned "+m+", but I don't see it in the code. Where is it?")
		}
		if len(out) == maxAlignmentRounds {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "Compare your code with the plan you described to me. Which step of the plan is missing?")
	}
	return out
}

// restartQuestions opens guided discovery again from the first step of the
// approved plan.
func restartQuestions(planTags []string) []string {
	qs := []string{
		"Let's go back to your approved plan and rebuild from it. What was the very first step you described?",
	}
	if len(planTags) > 0 {
		if q, ok := discoveryQuestionBank[elements.Tag(planTags[0])]; ok {
			qs = append(qs, q)
		}
	}
	return qs
}

// discoveryQuestionBank leads the student toward writing each plan element
// themselves during guided discovery.
var discoveryQuestionBank = map[elements.Tag]string{
	elements.TagListCreation:    "Your plan starts with a place to keep the values. How do you create an empty one of those?",
	elements.TagForLoop:         "Your plan repeats a step a known number of times. How do you write a repetition like that?",
	elements.TagWhileLoop:       "Your plan repeats until something changes. What condition would your repetition check?",
	elements.TagLoopStructure:   "Your plan has a repeating part. What tool does the language give you for repeating?",
	elements.TagUserInput:       "Your plan gets a value from the user. How does a program ask for one?",
	elements.TagOutputDisplay:   "Your plan ends by showing the result. How does a program show something?",
	elements.TagTypeConversion:  "The user gives you text, but your plan needs a number. What turns one into the other?",
	elements.TagListAppend:      "Your plan puts each new value into the collection. What operation does that?",
	elements.TagRangeUsage:      "Your plan counts repetitions. What produces the sequence to count over?",
	elements.TagFixedIterations: "Your plan says a specific number of times. Where would that number live in your code?",
}

// DiscoveryQuestion returns the guided-discovery question for a plan element,
// or a generic opener.
func DiscoveryQuestion(tag string) string {
	if q, ok := discoveryQuestionBank[elements.Tag(tag)]; ok {
		return q
	}
	return "What does the next step of your plan look like as a single instruction?"
}
