package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/logicfirst/tutor/internal/i18n"
	"github.com/logicfirst/tutor/internal/llm"
	"github.com/logicfirst/tutor/internal/model"
)

// Generator is the completion surface the responder needs from the llm client.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Responder turns a tutoring situation into a student-facing response,
// grounding the generation with few-shot scenarios from the library and
// falling back to a fixed tone-appropriate string when generation fails.
type Responder struct {
	gen Generator
}

// NewResponder creates a Responder. A nil generator is allowed; every call
// then takes the fallback path.
func NewResponder(gen Generator) *Responder {
	return &Responder{gen: gen}
}

// Situation describes one turn needing a response.
type Situation struct {
	Type         Type
	Level        model.ValidationLevel
	Strictness   model.Strictness
	Tone         model.Tone
	Problem      model.Problem
	StudentInput string
	History      []model.Turn
	Guidance     string // extra instruction, e.g. questions to weave in
}

const historyWindow = 6

// Respond generates the tutor's reply for the situation. Generation failures
// are logged and answered with the tone's fixed fallback; the caller always
// gets usable text.
func (r *Responder) Respond(ctx context.Context, sit Situation) string {
	if r.gen == nil {
		return r.Fallback(ctx, sit.Tone)
	}

	examples := Select(sit.Type, sit.Level, sit.Strictness)
	if len(examples) > maxFewShot {
		examples = examples[:maxFewShot]
	}

	out, err := r.gen.Complete(ctx, llm.Request{
		System:      buildSystemPrompt(sit, examples),
		Messages:    buildMessages(sit),
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		slog.Warn("response generation failed, using fallback",
			"kind", llm.Classify(err), "type", sit.Type, "error", err)
		return r.Fallback(ctx, sit.Tone)
	}
	if containsCode(out) {
		slog.Warn("generated response contained code, using fallback", "type", sit.Type)
		return r.Fallback(ctx, sit.Tone)
	}
	return strings.TrimSpace(out)
}

// Fallback returns the fixed localized response for a tone.
func (r *Responder) Fallback(ctx context.Context, tone model.Tone) string {
	return i18n.T(ctx, "fallback."+string(tone))
}

func buildSystemPrompt(sit Situation, examples []Scenario) string {
	var sb strings.Builder
	sb.WriteString("You are a programming tutor who NEVER writes, completes, or corrects code for the student.\n")
	sb.WriteString("You teach by questioning. You never invent requirements the problem does not state.\n")
	sb.WriteString("Hard rules:\n")
	sb.WriteString("- Never include code, code fragments, or pseudo-code in your reply.\n")
	sb.WriteString("- Never reveal the solution or the next step outright; ask questions that lead there.\n")
	sb.WriteString("- Stay on the current problem; do not move on or change the task.\n\n")

	sb.WriteString(fmt.Sprintf("Respond in a %s tone at strictness level %s.\n\n",
		string(sit.Tone), sit.Strictness))

	if len(examples) > 0 {
		sb.WriteString("Examples of how you respond in situations like this one:\n\n")
		for i, ex := range examples {
			sb.WriteString(fmt.Sprintf("Example %d (principle: %s):\n", i+1, ex.TeachingPrinciple))
			sb.WriteString("Problem: " + ex.ProblemContext + "\n")
			sb.WriteString("Student: " + ex.StudentInput + "\n")
			sb.WriteString("Tutor: " + ex.Response + "\n\n")
		}
	}

	if sit.Guidance != "" {
		sb.WriteString("For this reply: " + sit.Guidance + "\n")
	}
	return sb.String()
}

func buildMessages(sit Situation) []llm.Message {
	var msgs []llm.Message

	var ctxB strings.Builder
	ctxB.WriteString("Current problem: " + sit.Problem.Title + "\n")
	ctxB.WriteString(sit.Problem.Description + "\n")
	msgs = append(msgs, llm.Message{Role: "user", Content: ctxB.String()})

	history := sit.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == model.RoleTutor {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}

	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: "<student-input>\n" + llm.SanitizeInput(sit.StudentInput) + "\n</student-input>",
	})
	return msgs
}

// containsCode guards the no-code rule against the generator itself.
func containsCode(text string) bool {
	if strings.Contains(text, "```") {
		return true
	}
	for _, marker := range []string{"def ", "print(", "input(", ".append(", "for i in", "while True"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
