package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seanblong/interviewrag/internal/prompt"
)

const (
	DefaultRole        = "Full Stack Developer"
	DefaultRoleCount   = 7
	DefaultResumeCount = 8
	DefaultHRCount     = 5

	technicalContextLimit  = 8
	evaluationContextLimit = 10
)

// TechnicalQuestions returns up to countRole role questions followed by up
// to countResume questions grounded in the session's resume.
func (s *Service) TechnicalQuestions(ctx context.Context, sessionID, role string, countRole, countResume int) ([]string, error) {
	if role == "" {
		role = DefaultRole
	}

	var domain, resume []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qs, err := s.questions(gctx, "domain_questions", prompt.DomainQuestions(role, countRole))
		domain = qs
		return err
	})
	g.Go(func() error {
		resumeCtx, err := s.contextFor(gctx, sessionID, fmt.Sprintf("Key achievements and projects for %s", role), technicalContextLimit)
		if err != nil {
			return err
		}
		qs, err := s.questions(gctx, "resume_questions", prompt.ResumeQuestions(countResume, resumeCtx))
		resume = qs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, countRole+countResume)
	out = append(out, head(domain, countRole)...)
	out = append(out, head(resume, countResume)...)
	return out, nil
}

// HRQuestions returns up to count behavioural questions.
func (s *Service) HRQuestions(ctx context.Context, sessionID string, count int) ([]string, error) {
	qs, err := s.questions(ctx, "hr_questions", prompt.HRQuestions(count))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("session", sessionID).Int("questions", len(qs)).Msg("generated hr questions")
	return head(qs, count), nil
}

func head(items []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
