package models

import "time"

// AnswerType tags a technical answer as role-based or resume-based.
type AnswerType string

const (
	AnswerRole   AnswerType = "role"
	AnswerResume AnswerType = "resume"
)

type AnswerRecord struct {
	Question string     `json:"question" validate:"required"`
	Answer   string     `json:"answer"`
	Type     AnswerType `json:"type,omitempty" validate:"omitempty,oneof=role resume"`
}

type ScoredAnswer struct {
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	Type     AnswerType `json:"type,omitempty"`
	Score    int        `json:"score"`
	Marks    int        `json:"marks"`
	Feedback string     `json:"feedback"`
}

type TechnicalResult struct {
	Answers          []ScoredAnswer `json:"answers"`
	Score            int            `json:"score"`
	RoleScore        int            `json:"role_score"`
	ResumeScore      int            `json:"resume_score"`
	RolePercent      int            `json:"role_percent"`
	ResumePercent    int            `json:"resume_percent"`
	TechnicalPercent int            `json:"technical_percent"`
}

type HRResult struct {
	Answers   []ScoredAnswer `json:"answers"`
	Score     int            `json:"score"`
	HRPercent int            `json:"hr_percent"`
}

type FeedbackSummary struct {
	TechnicalFeedback     []string `json:"technical_feedback"`
	HRFeedback            []string `json:"hr_feedback"`
	CommunicationFeedback []string `json:"communication_feedback"`
	TipsToImprove         []string `json:"tips_to_improve"`
}

type EvaluationResult struct {
	Technical       TechnicalResult `json:"technical"`
	HR              HRResult        `json:"hr"`
	Overall         int             `json:"overall"`
	OverallPercent  int             `json:"overall_percent"`
	FeedbackSummary FeedbackSummary `json:"feedback_summary"`
}

// EvaluationRecord is an archived evaluation for a session.
type EvaluationRecord struct {
	ID        int64            `json:"id"`
	SessionID string           `json:"session_id"`
	Role      string           `json:"role"`
	Result    EvaluationResult `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
}
