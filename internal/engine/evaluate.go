package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/seanblong/interviewrag/internal/prompt"
	"github.com/seanblong/interviewrag/internal/recovery"
	"github.com/seanblong/interviewrag/internal/scoring"
	"github.com/seanblong/interviewrag/pkg/models"
)

// Evaluate scores every answer against the session's resume, aggregates
// marks per category and attaches a feedback summary. A failed summary
// call leaves the summary lists empty; the scores are still returned.
func (s *Service) Evaluate(ctx context.Context, sessionID, role string, technical, hr []models.AnswerRecord) (models.EvaluationResult, error) {
	if role == "" {
		role = DefaultRole
	}

	resumeCtx, err := s.contextFor(ctx, sessionID,
		fmt.Sprintf("Key projects, achievements, and responsibilities for %s", role), evaluationContextLimit)
	if err != nil {
		return models.EvaluationResult{}, err
	}

	raw, err := s.generate(ctx, "evaluate", prompt.Evaluation(role, resumeCtx, technical, hr))
	if err != nil {
		return models.EvaluationResult{}, err
	}
	obj := recovery.Object(raw)
	s.metrics.ObserveRecovery(recovery.KindObject.String(), string(obj.Stage))

	parsed := gjson.ParseBytes(obj.Raw)
	res := scoring.Aggregate(
		merge(technical, parsed.Get("technical.answers"), true),
		merge(hr, parsed.Get("hr.answers"), false),
	)
	res.FeedbackSummary = s.summarize(ctx, res.Technical.Answers, res.HR.Answers)
	return res, nil
}

// merge pairs each submitted answer with the model's verdict at the same
// position. Missing or malformed verdicts score 0.
func merge(answers []models.AnswerRecord, verdicts gjson.Result, technical bool) []models.ScoredAnswer {
	var list []gjson.Result
	if verdicts.IsArray() {
		list = verdicts.Array()
	}

	out := make([]models.ScoredAnswer, 0, len(answers))
	for i, a := range answers {
		sa := models.ScoredAnswer{Question: a.Question, Answer: a.Answer}
		if technical {
			sa.Type = a.Type
			if sa.Type == "" {
				sa.Type = models.AnswerRole
			}
		}
		if i < len(list) && list[i].IsObject() {
			sa.Score = coerceScore(list[i].Get("score"))
			sa.Feedback = strings.TrimSpace(list[i].Get("feedback").String())
		}
		out = append(out, sa)
	}
	return out
}

// coerceScore accepts numbers and numeric strings; anything else is 0.
func coerceScore(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		str := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"))
		if r := gjson.Parse(str); r.Type == gjson.Number {
			return int(r.Int())
		}
	}
	return 0
}

func (s *Service) summarize(ctx context.Context, technical, hr []models.ScoredAnswer) models.FeedbackSummary {
	summary := models.FeedbackSummary{
		TechnicalFeedback:     []string{},
		HRFeedback:            []string{},
		CommunicationFeedback: []string{},
		TipsToImprove:         []string{},
	}

	raw, err := s.generate(ctx, "feedback_summary", prompt.FeedbackSummary(technical, hr))
	if err != nil {
		log.Warn().Err(err).Msg("feedback summary unavailable")
		return summary
	}
	obj := recovery.Object(raw)
	s.metrics.ObserveRecovery(recovery.KindObject.String(), string(obj.Stage))

	parsed := gjson.ParseBytes(obj.Raw)
	summary.TechnicalFeedback = stringList(parsed.Get("technical_feedback"))
	summary.HRFeedback = stringList(parsed.Get("hr_feedback"))
	summary.CommunicationFeedback = stringList(parsed.Get("communication_feedback"))
	summary.TipsToImprove = stringList(parsed.Get("tips_to_improve"))
	return summary
}

// stringList keeps the non-blank entries of a JSON array; other shapes
// yield an empty list.
func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		text := item.String()
		if item.IsObject() || item.IsArray() {
			text = item.Raw
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}
