// Package prompt builds the instructions sent to the language model. Every
// prompt ends by asking for bare JSON so the recovery chain has the best
// chance of a direct parse.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seanblong/interviewrag/pkg/models"
)

const arrayOnly = "Return ONLY a JSON array of strings. No numbering, no bullets, no explanations.\n" +
	`Example: ["First question?", "Second question?"]`

// DomainQuestions asks for role-level conceptual questions that do not
// depend on the resume.
func DomainQuestions(role string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior technical interviewer hiring an entry-level %s.\n", role)
	fmt.Fprintf(&b, "Write exactly %d interview questions of easy to medium difficulty.\n\n", count)
	b.WriteString("Rules:\n")
	b.WriteString("- No coding tasks: nothing that asks to write code, trace output or implement an algorithm.\n")
	b.WriteString("- Skip trivia such as definitions of a variable or of HTML.\n")
	b.WriteString("- Prefer concepts the role relies on daily, how systems fit together, and scenario questions.\n")
	b.WriteString("- Each question should invite an explanation with an example.\n\n")
	b.WriteString("Good examples: \"How does a thread differ from a process?\", ")
	b.WriteString("\"What happens between a browser request and the API response?\", ")
	b.WriteString("\"Why do databases enforce referential integrity?\"\n\n")
	b.WriteString(arrayOnly)
	return b.String()
}

// ResumeQuestions asks for questions grounded in the retrieved resume text.
func ResumeQuestions(count int, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced interviewer. Write exactly %d technical questions about this candidate's own work.\n", count)
	b.WriteString("Ask about the specific projects, tools and results that appear in the resume excerpt below, ")
	b.WriteString("and make each question impossible to answer without that background.\n")
	b.WriteString(arrayOnly)
	b.WriteString("\n\nResume excerpt:\n")
	b.WriteString(orNone(context))
	return b.String()
}

// HRQuestions asks for open behavioural questions.
func HRQuestions(count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a warm, attentive HR interviewer. Write exactly %d behavioural questions ", count)
	b.WriteString("that reveal the candidate's values, motivation and conduct at work.\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- Sound like a real conversation, without jargon.\n")
	b.WriteString("- Open with phrases like \"Tell me about a time...\", \"How did you approach...\", \"Looking back...\" and vary them.\n")
	b.WriteString("- Span teamwork, leadership, adaptability, handling feedback and resolving conflict.\n")
	b.WriteString("- One sentence per question, 15 to 25 words, never answerable with yes or no.\n\n")
	b.WriteString(arrayOnly)
	return b.String()
}

// Evaluation asks the model to score every answer 0-100 with short feedback.
func Evaluation(role, context string, technical, hr []models.AnswerRecord) string {
	if technical == nil {
		technical = []models.AnswerRecord{}
	}
	if hr == nil {
		hr = []models.AnswerRecord{}
	}

	var b strings.Builder
	b.WriteString("You are an impartial interview assessor. Score consistently and ground every judgement in the material below.\n")
	b.WriteString("- Give each technical and HR answer a score from 0 to 100.\n")
	b.WriteString("- Add one or two sentences of feedback per answer.\n")
	b.WriteString("- An empty answer scores 0.\n\n")
	fmt.Fprintf(&b, "Role: %s\n\n", role)
	b.WriteString("Resume excerpt:\n")
	b.WriteString(orNone(context))
	b.WriteString("\n\nTechnical answers (question, answer, type):\n")
	b.WriteString(marshal(technical))
	b.WriteString("\n\nHR answers (question, answer):\n")
	b.WriteString(marshal(hr))
	b.WriteString("\n\nReturn ONLY a single JSON object shaped like:\n")
	b.WriteString(`{"technical": {"answers": [{"question": "...", "answer": "...", "score": 0, "feedback": "..."}]}, ` +
		`"hr": {"answers": [{"question": "...", "answer": "...", "score": 0, "feedback": "..."}]}}`)
	b.WriteString("\nKeep the answers in the same order as given.")
	return b.String()
}

// FeedbackSummary asks for grouped, answer-specific coaching points.
func FeedbackSummary(technical, hr []models.ScoredAnswer) string {
	var b strings.Builder
	b.WriteString("You are an interview coach. Using only the scored answers and feedback below, ")
	b.WriteString("write specific points drawn from what the candidate actually said. Avoid stock phrases.\n\n")
	b.WriteString("Input:\n")
	b.WriteString(marshal(map[string]any{
		"technical_answers": technical,
		"hr_answers":        hr,
	}))
	b.WriteString("\n\nReturn ONLY a single JSON object with exactly these keys, each a list of 3 or 4 short strings:\n")
	b.WriteString(`{"technical_feedback": [], "hr_feedback": [], "communication_feedback": [], "tips_to_improve": []}` + "\n")
	b.WriteString("technical_feedback covers technical strengths and gaps, hr_feedback covers behavioural ones, ")
	b.WriteString("communication_feedback covers clarity and structure, tips_to_improve lists concrete practice or study steps.")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no resume content available)"
	}
	return s
}

// marshal renders v as JSON without HTML escaping so quotes and angle
// brackets in answers reach the model unchanged.
func marshal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}
