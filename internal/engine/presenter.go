package engine

import (
	"fmt"
	"strings"

	"github.com/logicfirst/tutor/internal/model"
)

// presentProblem renders the canonical problem statement. The closing question
// is part of the contract: every presentation ends by asking for the approach.
func presentProblem(p model.Problem) string {
	var b strings.Builder
	b.WriteString("Here is the problem:\n\n")
	fmt.Fprintf(&b, "**Problem %d: %s**\n\n%s\n", p.Number, p.Title, strings.TrimSpace(p.Description))
	if p.SampleInput != "" {
		fmt.Fprintf(&b, "\n**Sample Input:**\n%s\n", strings.TrimSpace(p.SampleInput))
	}
	if p.SampleOutput != "" {
		fmt.Fprintf(&b, "\n**Sample Output:**\n%s\n", strings.TrimSpace(p.SampleOutput))
	}
	b.WriteString("\nHow are you thinking to solve this question?")
	return b.String()
}

var statementRequests = []string{
	"problem statement",
	"what is the problem",
	"what's the problem",
	"show the problem",
	"show me the problem",
	"repeat the problem",
	"read the problem",
	"which problem",
}

// wantsProblemStatement reports whether the student is asking to see the
// problem again rather than answering it.
func wantsProblemStatement(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range statementRequests {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// analyzeCodeIssues spots the handful of beginner mistakes the tutor hints
// at directly instead of routing through a validator question.
func analyzeCodeIssues(code string, problem model.Problem) []string {
	var issues []string

	if strings.Contains(code, "input()") && !strings.Contains(code, "int(") {
		issues = append(issues, "type_confusion")
	}
	if strings.Contains(code, ".append(i)") {
		issues = append(issues, "loop_counter_confusion")
	}
	if strings.Contains(code, "range(1,") {
		issues = append(issues, "range_confusion")
	}
	if strings.Contains(code, "input(") &&
		!strings.Contains(code, "for ") && !strings.Contains(code, "while ") &&
		mentionsMultipleInputs(problem.Description) {
		issues = append(issues, "missing_loop")
	}

	return issues
}

func mentionsMultipleInputs(description string) bool {
	lowered := strings.ToLower(description)
	for _, phrase := range []string{"numbers", "each", "one by one", "times"} {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

var issueHints = map[string]string{
	"type_confusion":         "Good, but there is one issue. I'll give you a hint: look at what you are inserting into the list and check its type.",
	"loop_counter_confusion": "I see you're using a loop, which is great! But notice that you're appending the loop counter instead of taking user input. What should you append to get the user's numbers?",
	"range_confusion":        "Check your range - what sequence of values does it actually produce, and is that what the loop needs?",
	"missing_loop":           "You're taking input once, but the problem asks for several values. How can you repeat the input step?",
}

func hintForIssue(issue string) string {
	if hint, ok := issueHints[issue]; ok {
		return hint
	}
	return "Try to think about what the problem is asking, step by step."
}
