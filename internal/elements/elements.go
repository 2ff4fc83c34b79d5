// Package elements provides the shared element-tag vocabulary used on both
// sides of validation: tags extracted from a natural-language logic
// explanation and tags extracted from submitted code. Keeping both extractors
// and their keyword tables in one package prevents the two vocabularies from
// drifting apart.
package elements

import (
	"strings"
)

// Tag identifies a logic or code element in the shared vocabulary.
type Tag string

const (
	TagListCreation       Tag = "list_creation"
	TagVariableUsage      Tag = "variable_usage"
	TagForLoop            Tag = "for_loop"
	TagWhileLoop          Tag = "while_loop"
	TagLoopStructure      Tag = "loop_structure"
	TagUserInput          Tag = "user_input"
	TagOutputDisplay      Tag = "output_display"
	TagTypeConversion     Tag = "type_conversion"
	TagListAppend         Tag = "list_append"
	TagRangeUsage         Tag = "range_usage"
	TagFixedIterations    Tag = "fixed_iterations"
	TagVariableAssignment Tag = "variable_assignment"
	TagConditionalLogic   Tag = "conditional_logic"
	TagFunctionDefinition Tag = "function_definition"
)

// FromLogic extracts element tags from a natural-language explanation. The
// loop tags are mutually exclusive per mention: an explicit "for" or "while"
// wins over the generic loop tag.
func FromLogic(text string) []Tag {
	t := strings.ToLower(text)
	var tags []Tag
	add := func(tag Tag) {
		for _, have := range tags {
			if have == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	if strings.Contains(t, "list") || strings.Contains(t, "array") {
		add(TagListCreation)
	}
	if strings.Contains(t, "variable") || strings.Contains(t, "store") {
		add(TagVariableUsage)
	}
	switch {
	case strings.Contains(t, "for loop") || containsWord(t, "for"):
		add(TagForLoop)
	case containsWord(t, "while"):
		add(TagWhileLoop)
	case strings.Contains(t, "loop"):
		add(TagLoopStructure)
	}
	if strings.Contains(t, "input") || strings.Contains(t, "ask the user") {
		add(TagUserInput)
	}
	if strings.Contains(t, "print") || strings.Contains(t, "output") || strings.Contains(t, "display") {
		add(TagOutputDisplay)
	}
	if strings.Contains(t, "convert") || strings.Contains(t, "int(") || strings.Contains(t, "to a number") {
		add(TagTypeConversion)
	}
	if strings.Contains(t, "append") || strings.Contains(t, "add to the list") {
		add(TagListAppend)
	}
	if strings.Contains(t, "range") {
		add(TagRangeUsage)
	}
	if strings.Contains(t, "5 times") || strings.Contains(t, "five times") {
		add(TagFixedIterations)
	}
	return tags
}

// Satisfies reports whether a code tag fulfils a logic tag, allowing a
// concrete loop to stand in for the generic loop element and vice versa.
func Satisfies(logicTag, codeTag Tag) bool {
	if logicTag == codeTag {
		return true
	}
	if logicTag == TagLoopStructure {
		return codeTag == TagForLoop || codeTag == TagWhileLoop
	}
	if codeTag == TagLoopStructure {
		return logicTag == TagForLoop || logicTag == TagWhileLoop
	}
	// "do it N times" in prose is satisfied by any counted loop in code.
	if logicTag == TagFixedIterations {
		return codeTag == TagRangeUsage || codeTag == TagForLoop || codeTag == TagWhileLoop
	}
	return false
}

// containsWord reports whether lowered text contains w as a whole word.
func containsWord(lowered, w string) bool {
	idx := 0
	for {
		i := strings.Index(lowered[idx:], w)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(lowered[i-1])
		after := i+len(w) >= len(lowered) || !isWordByte(lowered[i+len(w)])
		if before && after {
			return true
		}
		idx = i + len(w)
		if idx >= len(lowered) {
			return false
		}
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// RequiredElement names one aspect a logic explanation must cover. These are
// quality dimensions of the explanation, distinct from the code-alignment
// tags above.
type RequiredElement string

const (
	ElemDataStructureChoice    RequiredElement = "data_structure_choice"
	ElemInputMethod            RequiredElement = "input_method"
	ElemLoopStructure          RequiredElement = "loop_structure"
	ElemProcessFlow            RequiredElement = "process_flow"
	ElemVariableNames          RequiredElement = "variable_names"
	ElemDataTypeHandling       RequiredElement = "data_type_handling"
	ElemOutputMethod           RequiredElement = "output_method"
	ElemEdgeCaseConsideration  RequiredElement = "edge_case_consideration"
	ElemErrorHandlingAwareness RequiredElement = "error_handling_awareness"
)

// RequiredFor returns the elements an explanation must address at the given
// strictness. Higher strictness demands more of the explanation.
func RequiredFor(s int) []RequiredElement {
	req := []RequiredElement{
		ElemDataStructureChoice,
		ElemInputMethod,
		ElemLoopStructure,
		ElemProcessFlow,
	}
	if s >= 3 {
		req = append(req, ElemVariableNames, ElemDataTypeHandling, ElemOutputMethod)
	}
	if s >= 4 {
		req = append(req, ElemEdgeCaseConsideration, ElemErrorHandlingAwareness)
	}
	return req
}

// elementKeywords is the fallback evidence table: an explanation covers an
// element when it contains any of that element's keywords.
var elementKeywords = map[RequiredElement][]string{
	ElemDataStructureChoice:    {"list", "array", "dictionary", "dict", "variable", "store"},
	ElemInputMethod:            {"input", "ask", "enter", "read", "user types"},
	ElemLoopStructure:          {"loop", "for loop", "for", "repeat", "iterate", "while"},
	ElemProcessFlow:            {"first", "then", "after", "step", "next", "finally"},
	ElemVariableNames:          {"call it", "called", "name it", "named", "variable name"},
	ElemDataTypeHandling:       {"int", "integer", "number", "string", "convert", "type"},
	ElemOutputMethod:           {"print", "output", "display", "show"},
	ElemEdgeCaseConsideration:  {"empty", "zero", "negative", "invalid", "what if", "edge"},
	ElemErrorHandlingAwareness: {"error", "wrong", "fail", "crash", "exception", "handle"},
}

// Covers reports whether the explanation addresses the element by keyword
// evidence.
func Covers(text string, elem RequiredElement) bool {
	t := strings.ToLower(text)
	for _, kw := range elementKeywords[elem] {
		if len(kw) <= 4 && !strings.Contains(kw, " ") {
			if containsWord(t, kw) {
				return true
			}
			continue
		}
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// TechnicalTerms and FlowWords feed the analyzer's confidence bonuses.
var (
	TechnicalTerms = []string{"for loop", "range", "append", "input()", "int()", "variable"}
	FlowWords      = []string{"first", "then", "after", "next", "finally", "step"}
)

// ConceptKeywords maps a code concept tag to the phrases a student's
// explanation of that concept is expected to contain.
var ConceptKeywords = map[Tag][]string{
	TagListCreation:       {"list", "empty list", "array", "collection"},
	TagForLoop:            {"for loop", "for each", "loops over", "goes through", "repeat"},
	TagWhileLoop:          {"while", "as long as", "until", "keeps going"},
	TagRangeUsage:         {"range", "times", "count", "0 to", "number of"},
	TagUserInput:          {"input", "ask", "user types", "enter"},
	TagOutputDisplay:      {"print", "show", "display", "output"},
	TagTypeConversion:     {"convert", "int(", "change to number", "turn into"},
	TagListAppend:         {"append", "add to", "put in", "attach"},
	TagVariableAssignment: {"variable", "store", "save", "assign", "equals"},
	TagConditionalLogic:   {"if", "condition", "check", "compare", "decide"},
	TagFunctionDefinition: {"function", "def", "define", "call it"},
}

// ExplainsConcept reports whether an explanation mentions the concept by
// keyword evidence.
func ExplainsConcept(text string, concept Tag) bool {
	t := strings.ToLower(text)
	for _, kw := range ConceptKeywords[concept] {
		if len(kw) <= 3 && !strings.Contains(kw, "(") {
			if containsWord(t, kw) {
				return true
			}
			continue
		}
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
