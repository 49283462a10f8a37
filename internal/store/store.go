package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seanblong/interviewrag/pkg/models"
)

// DefaultListLimit caps ListEvaluations when no limit is given.
const DefaultListLimit = 50

// ErrNoSession is returned when a write is attempted without a session id.
var ErrNoSession = errors.New("session id is required")

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store archives evaluation results in Postgres.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// EvaluationStore defines the methods that the Store must implement.
type EvaluationStore interface {
	Migrate(ctx context.Context) error
	SaveEvaluation(ctx context.Context, sessionID, role string, result models.EvaluationResult) (models.EvaluationRecord, error)
	ListEvaluations(ctx context.Context, sessionID string, limit int) ([]models.EvaluationRecord, error)
	Ping(ctx context.Context) error
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: p, pool: p}, nil
}

// NewWithDB wraps an existing connection or pool.
func NewWithDB(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS evaluations (
  id              BIGSERIAL PRIMARY KEY,
  session_id      TEXT NOT NULL,
  role            TEXT NOT NULL DEFAULT '',
  overall         INT  NOT NULL DEFAULT 0,
  overall_percent INT  NOT NULL DEFAULT 0,
  result          JSONB NOT NULL,
  created_at      TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE INDEX IF NOT EXISTS evaluations_session_created_idx
  ON evaluations (session_id, created_at DESC);
`
	_, err := s.db.Exec(ctx, q)
	return err
}

// SaveEvaluation inserts one evaluation and returns the stored record.
func (s *Store) SaveEvaluation(ctx context.Context, sessionID, role string, result models.EvaluationResult) (models.EvaluationRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return models.EvaluationRecord{}, ErrNoSession
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return models.EvaluationRecord{}, fmt.Errorf("encode evaluation: %w", err)
	}

	const q = `
		INSERT INTO evaluations (session_id, role, overall, overall_percent, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	rec := models.EvaluationRecord{SessionID: sessionID, Role: role, Result: result}
	err = s.db.QueryRow(ctx, q, sessionID, role, result.Overall, result.OverallPercent, payload).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return models.EvaluationRecord{}, fmt.Errorf("insert evaluation: %w", err)
	}
	return rec, nil
}

// ListEvaluations returns the newest evaluations for a session first.
func (s *Store) ListEvaluations(ctx context.Context, sessionID string, limit int) ([]models.EvaluationRecord, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	const q = `
		SELECT id, session_id, role, result, created_at
		FROM evaluations
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.EvaluationRecord{}
	for rows.Next() {
		var rec models.EvaluationRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Role, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Result); err != nil {
			return nil, fmt.Errorf("decode evaluation %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.db.Ping(ctx)
}
