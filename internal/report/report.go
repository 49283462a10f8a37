// Package report renders an evaluation as a Markdown or PDF document.
package report

import (
	"fmt"
	"strings"

	"github.com/seanblong/interviewrag/internal/scoring"
	"github.com/seanblong/interviewrag/pkg/models"
)

const maxSectionItems = 4

type Input struct {
	SessionID     string                  `json:"session_id" validate:"required"`
	CandidateName string                  `json:"candidate_name"`
	Role          string                  `json:"role"`
	Result        models.EvaluationResult `json:"result"`
}

type Row struct {
	Category string
	Marks    int
	Max      int
	Percent  int
}

type Section struct {
	Title string
	Items []string
}

// Report is the document model shared by every output format.
type Report struct {
	Title         string
	Subtitle      string
	Rows          []Row
	HRPerformance string
	Sections      []Section
}

// Build lays out the report: score table, HR band, the model's feedback
// sections and rule-based study tips.
func Build(in Input) Report {
	name := strings.TrimSpace(in.CandidateName)
	if name == "" {
		name = "Candidate"
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = "N/A"
	}

	res := in.Result
	r := Report{
		Title:    fmt.Sprintf("%s - Interview Results", name),
		Subtitle: fmt.Sprintf("Role: %s", role),
		Rows: []Row{
			{"Role-based Technical", res.Technical.RoleScore, scoring.RoleMax, res.Technical.RolePercent},
			{"Resume-based Technical", res.Technical.ResumeScore, scoring.ResumeMax, res.Technical.ResumePercent},
			{"Overall Technical", res.Technical.Score, scoring.TechnicalMax, res.Technical.TechnicalPercent},
			{"HR & Behavioral", res.HR.Score, scoring.HRMax, res.HR.HRPercent},
			{"Total Score", res.Overall, scoring.TotalMax, res.OverallPercent},
		},
		HRPerformance: HRBand(res.HR.HRPercent),
	}

	fb := res.FeedbackSummary
	for _, s := range []Section{
		{"Technical Feedback", fb.TechnicalFeedback},
		{"HR / Behavioral Feedback", fb.HRFeedback},
		{"Communication Feedback", fb.CommunicationFeedback},
		{"Tips to Improve", fb.TipsToImprove},
	} {
		if len(s.Items) > 0 {
			s.Items = s.Items[:min(len(s.Items), maxSectionItems)]
			r.Sections = append(r.Sections, s)
		}
	}
	r.Sections = append(r.Sections, Section{
		Title: "Tips to Enhance Knowledge",
		Items: Tips(in.Role, res.Technical.TechnicalPercent, res.HR.HRPercent),
	})
	return r
}

// HRBand describes behavioural performance for an HR percentage.
func HRBand(percent int) string {
	switch {
	case percent >= 85:
		return "Excellent communication and interpersonal skills. Answers were clear and well structured, " +
			"with strong signs of cultural fit, leadership potential and emotional intelligence."
	case percent >= 75:
		return "Good communication and behavioural answers. Ideas came across clearly, with a collaborative " +
			"mindset and a positive attitude to learning."
	case percent >= 65:
		return "Moderate communication skills. Key points landed, but clarity and storytelling can improve; " +
			"practising the STAR method would help."
	case percent >= 50:
		return "Communication and behavioural skills need significant work. Focus on articulating thoughts " +
			"clearly and on structured storytelling with the STAR method."
	default:
		return "Substantial improvement is needed in communication and interpersonal skills. Mock interviews " +
			"and deliberate soft-skill practice will build confidence."
	}
}

// Tips returns up to three study suggestions from the weakest areas and
// the role name.
func Tips(role string, technicalPercent, hrPercent int) []string {
	var tips []string

	switch {
	case technicalPercent < 60:
		tips = append(tips, "Revisit core data structures (arrays, linked lists, trees, hash maps) and how their operations behave.")
	case technicalPercent < 75:
		tips = append(tips, "Work through practice problems that target your weaker topics such as strings, arrays and sorting.")
	}

	if role = strings.TrimSpace(role); role != "" {
		lower := strings.ToLower(role)
		switch {
		case strings.Contains(lower, "python"):
			tips = append(tips, "Strengthen Python idioms: comprehensions, decorators, generators and async/await.")
		case strings.Contains(lower, "javascript") || strings.Contains(lower, "react"):
			tips = append(tips, "Go deeper on JavaScript closures, promises, async/await and the React hooks lifecycle.")
		case strings.Contains(lower, "java"):
			tips = append(tips, "Review Java generics, exception handling, concurrency and Spring basics.")
		case strings.Contains(lower, "full stack") || strings.Contains(lower, "developer"):
			tips = append(tips, "Balance frontend fundamentals (HTML, CSS, JS) with backend ones (APIs, databases, authentication).")
		default:
			tips = append(tips, fmt.Sprintf("Study the core concepts and practices expected of a %s.", role))
		}
	}

	switch {
	case hrPercent < 60:
		tips = append(tips, "Practise presenting your thoughts out loud so answers stay clear and concise.")
	case hrPercent < 75:
		tips = append(tips, "Tell past experiences with the STAR method: Situation, Task, Action, Result.")
	}

	if len(tips) < 2 {
		if technicalPercent > 0 {
			tips = append(tips, "Keep practising problem solving and system design to consolidate your technical base.")
		}
		tips = append(tips, "Follow industry news, read engineering blogs and contribute to open source.")
	}
	return tips[:min(len(tips), 3)]
}
