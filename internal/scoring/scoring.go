// Package scoring converts per-answer scores into marks and category
// percentages. All rounding is half-up in integer arithmetic so results do
// not depend on float formatting.
package scoring

import (
	"strings"

	"github.com/seanblong/interviewrag/pkg/models"
)

const (
	MarksPerAnswer = 5

	RoleQuestions   = 7
	ResumeQuestions = 8
	HRQuestions     = 5

	RoleMax      = RoleQuestions * MarksPerAnswer
	ResumeMax    = ResumeQuestions * MarksPerAnswer
	HRMax        = HRQuestions * MarksPerAnswer
	TechnicalMax = RoleMax + ResumeMax
	TotalMax     = TechnicalMax + HRMax
)

// NoAnswerFeedback is used for blank answers the model did not comment on.
const NoAnswerFeedback = "No answer provided."

// ClampScore bounds a model score to 0..100.
func ClampScore(score int) int {
	return min(max(score, 0), 100)
}

// Marks maps a 0..100 score onto 0..5 marks, rounding half up.
func Marks(score int) int {
	return (ClampScore(score)*MarksPerAnswer + 50) / 100
}

// Percent is marks as a share of maxMarks, rounded half up and capped at 100.
func Percent(marks, maxMarks int) int {
	if maxMarks <= 0 || marks <= 0 {
		return 0
	}
	return min((200*marks+maxMarks)/(2*maxMarks), 100)
}

// Finalize clamps the score, derives marks and applies the blank-answer rule.
func Finalize(a models.ScoredAnswer) models.ScoredAnswer {
	if strings.TrimSpace(a.Answer) == "" {
		a.Score = 0
		if strings.TrimSpace(a.Feedback) == "" {
			a.Feedback = NoAnswerFeedback
		}
	}
	a.Score = ClampScore(a.Score)
	a.Marks = Marks(a.Score)
	return a
}

// Aggregate finalizes every answer and totals marks per category. Technical
// answers without a type count as role answers. FeedbackSummary is left
// for the caller.
func Aggregate(technical, hr []models.ScoredAnswer) models.EvaluationResult {
	var res models.EvaluationResult

	res.Technical.Answers = make([]models.ScoredAnswer, 0, len(technical))
	for _, a := range technical {
		if a.Type == "" {
			a.Type = models.AnswerRole
		}
		a = Finalize(a)
		if a.Type == models.AnswerResume {
			res.Technical.ResumeScore += a.Marks
		} else {
			res.Technical.RoleScore += a.Marks
		}
		res.Technical.Answers = append(res.Technical.Answers, a)
	}
	res.Technical.Score = res.Technical.RoleScore + res.Technical.ResumeScore
	res.Technical.RolePercent = Percent(res.Technical.RoleScore, RoleMax)
	res.Technical.ResumePercent = Percent(res.Technical.ResumeScore, ResumeMax)
	res.Technical.TechnicalPercent = Percent(res.Technical.Score, TechnicalMax)

	res.HR.Answers = make([]models.ScoredAnswer, 0, len(hr))
	for _, a := range hr {
		a.Type = ""
		a = Finalize(a)
		res.HR.Score += a.Marks
		res.HR.Answers = append(res.HR.Answers, a)
	}
	res.HR.HRPercent = Percent(res.HR.Score, HRMax)

	res.Overall = res.Technical.Score + res.HR.Score
	res.OverallPercent = Percent(res.Overall, TotalMax)
	return res
}
