package elements

import (
	"regexp"
	"strings"
)

// SyntaxIssue classifies a structural failure in submitted code. It mirrors
// model.SyntaxIssue; the string values are the cross-package contract.
type SyntaxIssue string

const (
	IssueNone                 SyntaxIssue = ""
	IssueMissingColon         SyntaxIssue = "missing_colon"
	IssueIndentation          SyntaxIssue = "indentation_error"
	IssueUnmatchedParenthesis SyntaxIssue = "unmatched_parenthesis"
	IssueUnmatchedBracket     SyntaxIssue = "unmatched_bracket"
	IssueGeneric              SyntaxIssue = "syntax_error"
)

// CodeAnalysis is the structural breakdown of a code submission.
type CodeAnalysis struct {
	Parseable          bool
	Issue              SyntaxIssue
	Tags               []Tag
	Complexity         string // basic, intermediate, advanced
	AdvancedConstructs int
	AttributionHits    []string
}

var (
	blockHeaderRe   = regexp.MustCompile(`^\s*(for|while|if|elif|else|def|class|try|except|finally|with)\b`)
	lambdaRe        = regexp.MustCompile(`\blambda\b`)
	comprehensionRe = regexp.MustCompile(`\[[^\]]*\bfor\b[^\]]*\]`)
	defParamsRe     = regexp.MustCompile(`\bdef\s+\w+\s*\(([^)]*)\)`)
	assignRe        = regexp.MustCompile(`(^|[^=!<>])=([^=]|$)`)

	attributionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)stack\s*overflow`),
		regexp.MustCompile(`(?i)\bcopied\b`),
		regexp.MustCompile(`(?i)chat\s*gpt|\bgpt\b`),
		regexp.MustCompile(`(?i)\bai\b`),
		regexp.MustCompile(`(?i)def\s+\w*solution`),
		regexp.MustCompile(`(?i)class\s+Solution`),
	}
)

// Analyze scans Python-like source. It first checks structure, classifying
// the failure kind on error, then extracts element tags line by line.
// Extraction still runs on unparseable code so debugging questions can
// reference what the student attempted.
func Analyze(code string) CodeAnalysis {
	a := CodeAnalysis{Parseable: true, Complexity: "basic"}
	lines := strings.Split(code, "\n")

	a.Issue = checkStructure(lines)
	if a.Issue != IssueNone {
		a.Parseable = false
	}

	var tags []Tag
	add := func(tag Tag) {
		for _, have := range tags {
			if have == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	for _, raw := range lines {
		line, comment := splitComment(raw)
		for _, re := range attributionRes {
			if comment != "" && re.MatchString(comment) {
				a.AttributionHits = append(a.AttributionHits, strings.TrimSpace(comment))
				break
			}
		}
		// Solution-class naming is suspicious in the code itself too.
		if strings.Contains(line, "class Solution") || attributionRes[4].MatchString(line) {
			a.AttributionHits = append(a.AttributionHits, strings.TrimSpace(line))
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.Contains(trimmed, "[]") || strings.Contains(trimmed, "list(") {
			add(TagListCreation)
		}
		if strings.HasPrefix(trimmed, "for ") || strings.Contains(trimmed, " for ") {
			add(TagForLoop)
		}
		if strings.HasPrefix(trimmed, "while ") {
			add(TagWhileLoop)
		}
		if strings.Contains(trimmed, "input(") {
			add(TagUserInput)
		}
		if strings.Contains(trimmed, "print(") {
			add(TagOutputDisplay)
		}
		if strings.Contains(trimmed, "int(") || strings.Contains(trimmed, "float(") {
			add(TagTypeConversion)
		}
		if strings.Contains(trimmed, ".append(") {
			add(TagListAppend)
		}
		if strings.Contains(trimmed, "range(") {
			add(TagRangeUsage)
		}
		if assignRe.MatchString(trimmed) {
			add(TagVariableAssignment)
		}
		if strings.HasPrefix(trimmed, "if ") || strings.HasPrefix(trimmed, "elif ") {
			add(TagConditionalLogic)
		}
		if strings.HasPrefix(trimmed, "def ") {
			add(TagFunctionDefinition)
		}

		if comprehensionRe.MatchString(trimmed) {
			a.AdvancedConstructs++
		}
		if lambdaRe.MatchString(trimmed) {
			a.AdvancedConstructs++
		}
		if m := defParamsRe.FindStringSubmatch(trimmed); m != nil {
			params := strings.Split(m[1], ",")
			n := 0
			for _, p := range params {
				if strings.TrimSpace(p) != "" {
					n++
				}
			}
			if n > 3 {
				a.AdvancedConstructs++
			}
		}
	}
	a.Tags = tags

	for _, tag := range tags {
		if tag == TagConditionalLogic && a.Complexity == "basic" {
			a.Complexity = "intermediate"
		}
		if tag == TagFunctionDefinition {
			a.Complexity = "advanced"
		}
	}
	return a
}

// checkStructure walks the lines once and reports the first structural
// failure: unbalanced brackets, a block header missing its colon, or a header
// whose body is not indented.
func checkStructure(lines []string) SyntaxIssue {
	parens, brackets := 0, 0
	expectIndent := false
	headerIndent := 0

	for _, raw := range lines {
		line, _ := splitComment(raw)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := indentWidth(line)

		if expectIndent {
			if indent <= headerIndent {
				return IssueIndentation
			}
			expectIndent = false
		}

		for _, r := range line {
			switch r {
			case '(':
				parens++
			case ')':
				parens--
			case '[':
				brackets++
			case ']':
				brackets--
			}
			if parens < 0 {
				return IssueUnmatchedParenthesis
			}
			if brackets < 0 {
				return IssueUnmatchedBracket
			}
		}

		if blockHeaderRe.MatchString(line) && parens == 0 && brackets == 0 {
			if !strings.HasSuffix(trimmed, ":") {
				return IssueMissingColon
			}
			expectIndent = true
			headerIndent = indent
		}
	}

	if expectIndent {
		return IssueIndentation
	}
	if parens > 0 {
		return IssueUnmatchedParenthesis
	}
	if brackets > 0 {
		return IssueUnmatchedBracket
	}
	return IssueNone
}

// splitComment separates a line into code and its trailing # comment,
// ignoring # inside string literals.
func splitComment(line string) (code, comment string) {
	inSingle, inDouble := false, false
	for i, r := range line {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return line[:i], line[i+1:]
			}
		}
	}
	return line, ""
}

func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// codeIndicators decide whether a free-form turn is a code submission rather
// than prose about code.
var codeIndicators = []string{
	"def ", "print(", "input(", "int(", ".append(", "range(",
	"for ", "while ", "if ", "= [", "=[",
}

// LooksLikeCode reports whether text reads as a code submission: multiple
// code indicators, or any line that is unmistakably a statement.
func LooksLikeCode(text string) bool {
	hits := 0
	for _, ind := range codeIndicators {
		if strings.Contains(text, ind) {
			hits++
		}
	}
	if hits >= 2 {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if blockHeaderRe.MatchString(trimmed) && strings.HasSuffix(trimmed, ":") {
			return true
		}
		// A short line with a bare assignment is a statement, not prose.
		if assignRe.MatchString(trimmed) && !strings.Contains(trimmed, "==") && strings.Count(trimmed, " ") <= 4 && trimmed != "" {
			return true
		}
	}
	return false
}
